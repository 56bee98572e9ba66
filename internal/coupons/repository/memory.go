package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	couponserrors "travelcore/internal/coupons/errors"
	"travelcore/pkg/db"
	"travelcore/pkg/db/memory"
	"travelcore/pkg/model"

	"github.com/google/uuid"
)

type memoryCouponRepository struct {
	coupons *memory.Table[model.Coupon]
	usages  *memory.Table[model.CouponUsage]
}

// NewMemoryCouponRepository keeps the same uniqueness rules as the mongo
// indexes: coupon code, and (user, coupon) for usages.
func NewMemoryCouponRepository() CouponRepository {
	return &memoryCouponRepository{
		coupons: memory.NewTable[model.Coupon](func(c model.Coupon) string {
			return strings.ToUpper(c.Code)
		}).OrderBy(func(a, b model.Coupon) bool {
			if !a.ValidTo.Equal(b.ValidTo) {
				return a.ValidTo.After(b.ValidTo)
			}
			return a.Code < b.Code
		}),
		usages: memory.NewTable[model.CouponUsage](func(u model.CouponUsage) string {
			return u.UserID + "|" + u.CouponID
		}),
	}
}

func (r *memoryCouponRepository) Create(ctx context.Context, c *model.Coupon) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if err := r.coupons.Insert(ctx, c.ID, *c); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return couponserrors.ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (r *memoryCouponRepository) FindByID(ctx context.Context, id string) (*model.Coupon, error) {
	c, err := r.coupons.Get(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, couponserrors.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *memoryCouponRepository) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	found := r.coupons.Find(ctx, func(c model.Coupon) bool { return c.Code == code })
	if len(found) == 0 {
		return nil, couponserrors.ErrNotFound
	}
	return &found[0], nil
}

func (r *memoryCouponRepository) active(ctx context.Context, now time.Time) []model.Coupon {
	return r.coupons.Find(ctx, func(c model.Coupon) bool { return c.IsValid(now) })
}

func (r *memoryCouponRepository) FindActive(ctx context.Context, now time.Time, limit int, offset int64) ([]*model.Coupon, error) {
	all := r.active(ctx, now)
	out := []*model.Coupon{}
	for i := int(offset); i < len(all) && len(out) < limit; i++ {
		c := all[i]
		out = append(out, &c)
	}
	return out, nil
}

func (r *memoryCouponRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	return int64(len(r.active(ctx, now))), nil
}

func (r *memoryCouponRepository) HasUsage(ctx context.Context, couponID, userID string) (bool, error) {
	found := r.usages.Find(ctx, func(u model.CouponUsage) bool {
		return u.CouponID == couponID && u.UserID == userID
	})
	return len(found) > 0, nil
}

func (r *memoryCouponRepository) IncrementUsage(ctx context.Context, id string, version int64) (*model.Coupon, error) {
	c, err := r.coupons.Update(ctx, id, func(c *model.Coupon) error {
		if c.Version != version || c.UsedCount >= c.MaxUses {
			return db.ErrVersionConflict
		}
		c.UsedCount++
		c.Version++
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, couponserrors.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *memoryCouponRepository) CreateUsage(ctx context.Context, u *model.CouponUsage) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return r.usages.Insert(ctx, u.ID, *u)
}
