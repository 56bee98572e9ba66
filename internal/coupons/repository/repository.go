package repository

import (
	"context"
	"time"

	"travelcore/pkg/model"
)

const (
	CouponCollection = "coupons"
	UsageCollection  = "coupon_usages"
)

// CouponRepository is the coupon side of the inventory record store.
//
// IncrementUsage is a compare-and-swap: it succeeds only while the stored
// version equals version and used_count < max_uses, and returns
// db.ErrVersionConflict otherwise. CreateUsage returns db.ErrDuplicate when
// the (user, coupon) pair already exists.
type CouponRepository interface {
	Create(ctx context.Context, c *model.Coupon) error
	FindByID(ctx context.Context, id string) (*model.Coupon, error)
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	FindActive(ctx context.Context, now time.Time, limit int, offset int64) ([]*model.Coupon, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)
	HasUsage(ctx context.Context, couponID, userID string) (bool, error)
	IncrementUsage(ctx context.Context, id string, version int64) (*model.Coupon, error)
	CreateUsage(ctx context.Context, u *model.CouponUsage) error
}
