// Package db holds the store-neutral pieces shared by the mongo and memory
// repositories.
package db

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is a unique index violation.
	ErrDuplicate = errors.New("duplicate key")
	// ErrVersionConflict means a compare-and-swap matched no record.
	ErrVersionConflict = errors.New("record changed since it was read")
)

type TransactionFunc func(ctx context.Context) error

// TransactionManager runs fn so that either all of its writes apply or none do.
type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}
