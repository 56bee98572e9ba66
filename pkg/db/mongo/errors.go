package mongo

import (
	"context"
	"errors"
	"fmt"

	"travelcore/pkg/db"
	apperrors "travelcore/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// Classify turns a driver error into the store-neutral sentinels or an
// AppError. Duplicate keys and missing documents keep their cause so callers
// can match them with errors.Is.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.IsAppError(err),
		errors.Is(err, db.ErrDuplicate),
		errors.Is(err, db.ErrNotFound),
		errors.Is(err, db.ErrVersionConflict),
		errors.Is(err, context.Canceled):
		return err
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", db.ErrDuplicate, err)
	case errors.Is(err, mongo.ErrNoDocuments):
		return db.ErrNotFound
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, context.DeadlineExceeded):
		return apperrors.StoreUnavailable(err)
	default:
		return apperrors.Internal("store operation failed", err)
	}
}
