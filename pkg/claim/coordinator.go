package claim

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"travelcore/pkg/conflict"
	"travelcore/pkg/db"
	apperrors "travelcore/pkg/errors"
	"travelcore/pkg/events"
	"travelcore/pkg/logger"
)

// Verdict is the outcome of evaluating the rules for one claim.
type Verdict struct {
	Reason  conflict.Reason
	Message string
}

func Allow() Verdict {
	return Verdict{}
}

func Deny(reason conflict.Reason, format string, args ...any) Verdict {
	return Verdict{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func (v Verdict) Denied() bool {
	return v.Reason != conflict.None
}

// Claim describes one check-then-commit cycle.
//
// Validate runs while every lock in Locks is held. Commit runs inside a single
// store transaction, still under the locks, and must re-check whatever
// Validate checked before mutating. A denied verdict from Commit rolls the
// transaction back and is reported as a transient conflict with that reason.
type Claim struct {
	Resource string
	Key      string
	Locks    []string
	Validate func(ctx context.Context) (Verdict, error)
	Commit   func(ctx context.Context) (Verdict, error)
}

// Coordinator runs claims: locks, attempt bookkeeping, and the commit
// transaction.
type Coordinator struct {
	Locker  Locker
	Tx      db.TransactionManager
	Events  events.Publisher
	Metrics *Metrics
	Log     *logger.Logger
}

type lostRace struct {
	verdict Verdict
}

func (l *lostRace) Error() string {
	return fmt.Sprintf("lost race: %s: %s", l.verdict.Reason, l.verdict.Message)
}

func (c *Coordinator) Execute(ctx context.Context, cl Claim) error {
	attempt := NewAttempt(cl.Resource, cl.Key, c.Log, c.Metrics)

	leases, err := AcquireAll(ctx, c.Locker, cl.Locks)
	if err != nil {
		return attempt.Abandon(LockError(cl.Key, err))
	}
	defer func() {
		if err := leases.Release(context.WithoutCancel(ctx)); err != nil && c.Log != nil {
			c.Log.Warn("Failed to release claim locks", "resource", cl.Resource, "key", cl.Key, "error", err)
		}
	}()

	attempt.Validate()
	verdict, err := cl.Validate(ctx)
	if err != nil {
		return attempt.Abandon(err)
	}
	if verdict.Denied() {
		return attempt.Reject(verdict.Reason, verdict.Message)
	}

	if err := attempt.Proceed(ctx); err != nil {
		return err
	}

	err = c.Tx.ExecuteTransaction(context.WithoutCancel(ctx), func(txCtx context.Context) error {
		verdict, err := cl.Commit(txCtx)
		if err != nil {
			return err
		}
		if verdict.Denied() {
			return &lostRace{verdict: verdict}
		}
		return nil
	})
	if err != nil {
		var lost *lostRace
		if errors.As(err, &lost) {
			return attempt.Lose(lost.verdict.Reason, lost.verdict.Message)
		}
		if errors.Is(err, db.ErrVersionConflict) || errors.Is(err, db.ErrDuplicate) {
			return attempt.Lose(conflict.Contended, fmt.Sprintf("records for %s changed before commit", cl.Key))
		}
		return attempt.Fail(err)
	}

	attempt.Succeed()
	return nil
}

// Emit publishes an event for a committed claim.
func (c *Coordinator) Emit(ctx context.Context, eventType, key string, data any) {
	if c.Events == nil {
		return
	}
	log := c.Log
	if log == nil {
		log = logger.Discard()
	}
	events.Emit(ctx, c.Events, log, eventType, key, data)
}

// abandonedError wraps the caller's context error once it ends before commit.
func abandonedError(err error) error {
	return apperrors.Wrap(err, apperrors.CodeTimeout, "claim abandoned before commit", http.StatusGatewayTimeout)
}
