package claim

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"travelcore/pkg/conflict"
	apperrors "travelcore/pkg/errors"
)

// ErrLockTimeout is returned when a key could not be locked within the wait bound.
var ErrLockTimeout = errors.New("lock wait timeout exceeded")

// Lease is exclusive ownership of one key until Release.
type Lease interface {
	Key() string
	Release(ctx context.Context) error
}

// Locker grants exclusive access per key. Different keys never block each other.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Key joins resource kind and identifying parts into a lock key.
func Key(resource string, parts ...string) string {
	return resource + ":" + strings.Join(parts, ":")
}

// AcquireAll locks keys in sorted order so that two multi-key claims cannot
// deadlock. On failure every lease already taken is released.
func AcquireAll(ctx context.Context, locker Locker, keys []string) (Leases, error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	leases := make(Leases, 0, len(sorted))
	for _, key := range sorted {
		lease, err := locker.Acquire(ctx, key)
		if err != nil {
			leases.Release(context.WithoutCancel(ctx))
			return nil, err
		}
		leases = append(leases, lease)
	}
	return leases, nil
}

type Leases []Lease

// Release gives the leases back in reverse order and returns the first error.
func (l Leases) Release(ctx context.Context) error {
	var first error
	for i := len(l) - 1; i >= 0; i-- {
		if err := l[i].Release(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LockError maps an Acquire failure to the error returned to callers.
// Timeouts and caller cancellation become transient conflicts.
func LockError(key string, err error) error {
	switch {
	case errors.Is(err, ErrLockTimeout):
		return apperrors.Transient(string(conflict.Contended), "resource is busy, retry: "+key)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Transient(string(conflict.Contended), "gave up waiting for "+key)
	case apperrors.IsAppError(err):
		return err
	default:
		return apperrors.StoreUnavailable(err)
	}
}

func waitBound(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

// timedOut distinguishes the wait bound from the caller's own deadline.
func timedOut(parent, bounded context.Context) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if bounded.Err() != nil {
		return ErrLockTimeout
	}
	return nil
}
