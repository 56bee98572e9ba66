// Package memory is an in-process record store. Writes made inside
// ExecuteTransaction are staged on the transaction's journal and become
// visible to other readers only when the transaction commits.
package memory

import (
	"context"
	"sync"

	"travelcore/pkg/db"
)

// commitMu serializes commits and direct writes so a commit validates and
// applies against a state nobody else is changing.
var commitMu sync.Mutex

type journalKey struct{}

// stager is a table holding writes staged by a journal.
type stager interface {
	lockRows()
	unlockRows()
	validate(j *journal) error
	apply(j *journal)
	discard(j *journal)
}

type journal struct {
	mu     sync.Mutex
	tables []stager
}

func (j *journal) touch(t stager) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, seen := range j.tables {
		if seen == t {
			return
		}
	}
	j.tables = append(j.tables, t)
}

func (j *journal) touched() []stager {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]stager(nil), j.tables...)
}

// commit applies every staged write or none of them. Every touched table is
// locked for the whole validate-and-apply step, so a reader sees either the
// state before the transaction or the state after it.
func (j *journal) commit() error {
	tables := j.touched()

	commitMu.Lock()
	defer commitMu.Unlock()

	for _, t := range tables {
		t.lockRows()
	}
	defer func() {
		for _, t := range tables {
			t.unlockRows()
		}
	}()

	for _, t := range tables {
		if err := t.validate(j); err != nil {
			for _, d := range tables {
				d.discard(j)
			}
			return err
		}
	}
	for _, t := range tables {
		t.apply(j)
	}
	return nil
}

func (j *journal) rollback() {
	for _, t := range j.touched() {
		t.lockRows()
		t.discard(j)
		t.unlockRows()
	}
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

type transactionManager struct{}

func NewTransactionManager() db.TransactionManager {
	return transactionManager{}
}

// ExecuteTransaction joins an enclosing transaction when ctx already has one.
// A commit that finds a row changed since it was staged returns
// db.ErrVersionConflict; a unique index taken in the meantime returns
// db.ErrDuplicate.
func (transactionManager) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) (err error) {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	j := &journal{}
	defer func() {
		if r := recover(); r != nil {
			j.rollback()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		j.rollback()
		return err
	}
	return j.commit()
}
