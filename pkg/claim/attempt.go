// Package claim provides the building blocks the coordinators use to run a
// check-then-commit cycle against one resource key: the attempt state
// machine, key locks, and outcome metrics.
package claim

import (
	"context"
	"fmt"
	"time"

	"travelcore/pkg/conflict"
	apperrors "travelcore/pkg/errors"
	"travelcore/pkg/logger"
)

type State string

const (
	Received   State = "received"
	Validating State = "validating"
	Rejected   State = "rejected"
	Committing State = "committing"
	Committed  State = "committed"
	Failed     State = "failed"
	Abandoned  State = "abandoned"
)

var transitions = map[State][]State{
	Received:   {Validating, Abandoned},
	Validating: {Rejected, Committing, Abandoned},
	Committing: {Committed, Failed},
}

func (s State) Terminal() bool {
	_, open := transitions[s]
	return !open
}

// Attempt tracks one claim through Received -> Validating -> Rejected |
// Committing -> Committed | Failed. Abandoned covers a caller that gave up
// before committing started.
type Attempt struct {
	Resource string
	Key      string
	State    State
	Reason   conflict.Reason

	started time.Time
	log     *logger.Logger
	metrics *Metrics
}

func NewAttempt(resource, key string, log *logger.Logger, metrics *Metrics) *Attempt {
	return &Attempt{
		Resource: resource,
		Key:      key,
		State:    Received,
		started:  time.Now(),
		log:      log,
		metrics:  metrics,
	}
}

func (a *Attempt) move(to State) {
	for _, allowed := range transitions[a.State] {
		if allowed == to {
			a.State = to
			if to.Terminal() {
				a.finish()
			}
			return
		}
	}
	panic(fmt.Sprintf("claim: illegal transition %s -> %s", a.State, to))
}

func (a *Attempt) finish() {
	if a.metrics != nil {
		a.metrics.observe(a.Resource, a.State, a.Reason, time.Since(a.started))
	}
	if a.log == nil {
		return
	}
	args := []any{"resource", a.Resource, "key", a.Key, "state", a.State, "duration_ms", time.Since(a.started).Milliseconds()}
	if a.Reason != conflict.None {
		args = append(args, "reason", a.Reason)
	}
	switch a.State {
	case Committed:
		a.log.Info("Claim committed", args...)
	case Failed:
		a.log.Warn("Claim failed during commit", args...)
	default:
		a.log.Debug("Claim closed", args...)
	}
}

func (a *Attempt) Validate() {
	a.move(Validating)
}

// Reject closes the attempt with a business-rule rejection.
func (a *Attempt) Reject(reason conflict.Reason, message string) error {
	a.Reason = reason
	a.move(Rejected)
	return apperrors.Rejected(string(reason), message)
}

func (a *Attempt) Commit() {
	a.move(Committing)
}

// Proceed moves a validated attempt to Committing, or discards it if ctx
// has already ended.
func (a *Attempt) Proceed(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return a.Abandon(abandonedError(err))
	}
	a.Commit()
	return nil
}

func (a *Attempt) Succeed() {
	a.move(Committed)
}

// Lose closes a committing attempt that was beaten by a concurrent claim.
func (a *Attempt) Lose(reason conflict.Reason, message string) error {
	a.Reason = reason
	a.move(Failed)
	return apperrors.Transient(string(reason), message)
}

// Fail closes a committing attempt with an infrastructure error.
func (a *Attempt) Fail(err error) error {
	a.move(Failed)
	return err
}

// Abandon is called when the caller's context ends before commit starts,
// or when a required lock could not be taken.
func (a *Attempt) Abandon(err error) error {
	if a.State.Terminal() {
		return err
	}
	if a.State == Committing {
		return a.Fail(err)
	}
	if apperrors.IsTransient(err) {
		a.Reason = conflict.Contended
	}
	a.move(Abandoned)
	return err
}
