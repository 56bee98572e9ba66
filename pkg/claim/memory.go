package claim

import (
	"context"
	"sync"
	"time"
)

type memorySlot struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker serializes claims inside one process. Each key owns a
// one-slot semaphore; the map mutex is only held to find or drop a slot.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*memorySlot
	wait  time.Duration
}

func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		slots: make(map[string]*memorySlot),
		wait:  wait,
	}
}

func (l *MemoryLocker) slot(key string) *memorySlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &memorySlot{sem: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *MemoryLocker) unref(key string, s *memorySlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	s := l.slot(key)

	waitCtx, cancel := waitBound(ctx, l.wait)
	defer cancel()

	select {
	case s.sem <- struct{}{}:
		return &memoryLease{locker: l, key: key, slot: s}, nil
	case <-waitCtx.Done():
		l.unref(key, s)
		return nil, timedOut(ctx, waitCtx)
	}
}

// Held reports how many keys currently have a holder or waiter.
func (l *MemoryLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

type memoryLease struct {
	locker *MemoryLocker
	key    string
	slot   *memorySlot
	once   sync.Once
}

func (m *memoryLease) Key() string {
	return m.key
}

func (m *memoryLease) Release(context.Context) error {
	m.once.Do(func() {
		<-m.slot.sem
		m.locker.unref(m.key, m.slot)
	})
	return nil
}
