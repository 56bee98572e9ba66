package claim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"travelcore/pkg/conflict"
	"travelcore/pkg/db/memory"
	apperrors "travelcore/pkg/errors"
	"travelcore/pkg/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type counter struct {
	used int
	max  int
}

func newCoordinator() *Coordinator {
	return &Coordinator{
		Locker:  NewMemoryLocker(5 * time.Second),
		Tx:      memory.NewTransactionManager(),
		Events:  &events.Recorder{},
		Metrics: NewMetrics(prometheus.NewRegistry()),
	}
}

func TestCoordinator_SameKeyNeverOvercommits(t *testing.T) {
	coord := newCoordinator()
	var mu sync.Mutex
	c := &counter{max: 5}

	read := func() int {
		mu.Lock()
		defer mu.Unlock()
		return c.used
	}

	var committed, rejected int32
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := coord.Execute(context.Background(), Claim{
				Resource: "coupon",
				Key:      "SAVE10",
				Locks:    []string{Key("coupon", "SAVE10")},
				Validate: func(ctx context.Context) (Verdict, error) {
					if read() >= c.max {
						return Deny(conflict.ExhaustedUses, "no uses left"), nil
					}
					return Allow(), nil
				},
				Commit: func(ctx context.Context) (Verdict, error) {
					mu.Lock()
					defer mu.Unlock()
					if c.used >= c.max {
						return Deny(conflict.ExhaustedUses, "no uses left"), nil
					}
					c.used++
					return Allow(), nil
				},
			})
			switch {
			case err == nil:
				atomic.AddInt32(&committed, 1)
			case apperrors.IsRejected(err):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if committed != 5 || rejected != 35 {
		t.Errorf("committed=%d rejected=%d, want 5 and 35", committed, rejected)
	}
	if c.used != 5 {
		t.Errorf("used = %d, want 5", c.used)
	}
	if got := testutil.ToFloat64(coord.Metrics.Count("coupon", Committed, conflict.None)); got != 5 {
		t.Errorf("committed metric = %v, want 5", got)
	}
}

func TestCoordinator_DeniedCommitIsTransient(t *testing.T) {
	coord := newCoordinator()

	err := coord.Execute(context.Background(), Claim{
		Resource: "room",
		Key:      "rt1",
		Locks:    []string{"room:rt1:2026-11-01"},
		Validate: func(ctx context.Context) (Verdict, error) { return Allow(), nil },
		Commit: func(ctx context.Context) (Verdict, error) {
			return Deny(conflict.InsufficientInventory, "sold out on %s", "2026-11-01"), nil
		},
	})

	if !apperrors.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if apperrors.ReasonOf(err) != string(conflict.InsufficientInventory) {
		t.Errorf("reason = %q, want %q", apperrors.ReasonOf(err), conflict.InsufficientInventory)
	}
}

func TestCoordinator_CommitErrorRollsBack(t *testing.T) {
	coord := newCoordinator()
	table := memory.NewTable[counter]()
	table.Insert(context.Background(), "c1", counter{max: 1})

	storeDown := apperrors.StoreUnavailable(errors.New("connection reset"))
	err := coord.Execute(context.Background(), Claim{
		Resource: "coupon",
		Key:      "c1",
		Locks:    []string{"coupon:c1"},
		Validate: func(ctx context.Context) (Verdict, error) { return Allow(), nil },
		Commit: func(ctx context.Context) (Verdict, error) {
			if _, err := table.Update(ctx, "c1", func(c *counter) error {
				c.used++
				return nil
			}); err != nil {
				return Verdict{}, err
			}
			return Verdict{}, storeDown
		},
	})

	if !apperrors.IsUnavailable(err) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	row, _ := table.Get(context.Background(), "c1")
	if row.used != 0 {
		t.Errorf("partial mutation left behind: used = %d", row.used)
	}
}

func TestCoordinator_CancelledBeforeCommit(t *testing.T) {
	coord := newCoordinator()
	ctx, cancel := context.WithCancel(context.Background())

	committed := false
	err := coord.Execute(ctx, Claim{
		Resource: "aircraft",
		Key:      "VT-ABC",
		Locks:    []string{"aircraft:VT-ABC:2026-11-01"},
		Validate: func(ctx context.Context) (Verdict, error) {
			cancel()
			return Allow(), nil
		},
		Commit: func(ctx context.Context) (Verdict, error) {
			committed = true
			return Allow(), nil
		},
	})

	if err == nil || committed {
		t.Fatalf("expected the attempt to be discarded, err=%v committed=%v", err, committed)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestCoordinator_CommitIgnoresLateCancel(t *testing.T) {
	coord := newCoordinator()
	ctx, cancel := context.WithCancel(context.Background())

	err := coord.Execute(ctx, Claim{
		Resource: "aircraft",
		Key:      "VT-ABC",
		Locks:    []string{"aircraft:VT-ABC:2026-11-01"},
		Validate: func(ctx context.Context) (Verdict, error) { return Allow(), nil },
		Commit: func(txCtx context.Context) (Verdict, error) {
			cancel()
			if txCtx.Err() != nil {
				return Verdict{}, txCtx.Err()
			}
			return Allow(), nil
		},
	})

	if err != nil {
		t.Errorf("commit should run to completion once started: %v", err)
	}
}

func TestCoordinator_LockTimeoutIsContended(t *testing.T) {
	coord := newCoordinator()
	coord.Locker = NewMemoryLocker(20 * time.Millisecond)

	held, _ := coord.Locker.Acquire(context.Background(), "coupon:HOT")
	defer held.Release(context.Background())

	err := coord.Execute(context.Background(), Claim{
		Resource: "coupon",
		Key:      "HOT",
		Locks:    []string{"coupon:HOT"},
		Validate: func(ctx context.Context) (Verdict, error) { return Allow(), nil },
		Commit:   func(ctx context.Context) (Verdict, error) { return Allow(), nil },
	})

	if !apperrors.IsTransient(err) || apperrors.ReasonOf(err) != string(conflict.Contended) {
		t.Errorf("expected transient Contended, got %v", err)
	}
}

func TestCoordinator_CommitTimeStoreConflictIsTransient(t *testing.T) {
	c := newCoordinator()
	table := memory.NewTable[counter]()
	ctx := context.Background()
	table.Insert(ctx, "r1", counter{max: 1})

	err := c.Execute(ctx, Claim{
		Resource: "room",
		Key:      "r1",
		Locks:    []string{"room:r1"},
		Validate: func(context.Context) (Verdict, error) { return Allow(), nil },
		Commit: func(txCtx context.Context) (Verdict, error) {
			if _, err := table.Update(txCtx, "r1", func(c *counter) error {
				c.used++
				return nil
			}); err != nil {
				return Verdict{}, err
			}
			// a writer that bypassed the lock commits the same row first
			_, err := table.Update(context.Background(), "r1", func(c *counter) error {
				c.used = 10
				return nil
			})
			return Allow(), err
		},
	})

	if !apperrors.IsTransient(err) || apperrors.ReasonOf(err) != string(conflict.Contended) {
		t.Fatalf("expected transient Contended, got %v", err)
	}
	got, _ := table.Get(ctx, "r1")
	if got.used != 10 {
		t.Errorf("used = %d, want the outside write to stand", got.used)
	}
}
