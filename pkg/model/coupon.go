package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Coupon is a shared, capped discount. UsedCount and Version are owned by the
// coupon coordinator and never written by callers.
type Coupon struct {
	ID            string           `json:"id,omitempty" bson:"_id,omitempty"`
	Code          string           `json:"code" bson:"code" validate:"required,min=3,max=20,coupon_code"`
	DiscountType  DiscountType     `json:"discount_type" bson:"discount_type" validate:"required,oneof=percent fixed"`
	DiscountValue decimal.Decimal  `json:"discount_value" bson:"discount_value"`
	MinSpend      *decimal.Decimal `json:"min_spend,omitempty" bson:"min_spend,omitempty"`
	MaxUses       int              `json:"max_uses" bson:"max_uses" validate:"required,min=1"`
	UsedCount     int              `json:"used_count" bson:"used_count" validate:"min=0"`
	ValidFrom     time.Time        `json:"valid_from" bson:"valid_from" validate:"required"`
	ValidTo       time.Time        `json:"valid_to" bson:"valid_to" validate:"required,gtfield=ValidFrom"`
	Active        bool             `json:"active" bson:"active"`
	Version       int64            `json:"-" bson:"version"`
	CreatedAt     time.Time        `json:"created_at" bson:"created_at"`
}

// RemainingUses never goes below zero.
func (c *Coupon) RemainingUses() int {
	return max(c.MaxUses-c.UsedCount, 0)
}

func (c *Coupon) InWindow(now time.Time) bool {
	return !now.Before(c.ValidFrom) && !now.After(c.ValidTo)
}

func (c *Coupon) IsValid(now time.Time) bool {
	return c.Active && c.InWindow(now) && c.UsedCount < c.MaxUses
}

// CouponUsage is created only as the side effect of a committed redemption.
// (UserID, CouponID) is unique at the store level.
type CouponUsage struct {
	ID              string          `json:"id,omitempty" bson:"_id,omitempty"`
	CouponID        string          `json:"coupon_id" bson:"coupon_id"`
	CouponCode      string          `json:"coupon_code" bson:"coupon_code"`
	UserID          string          `json:"user_id" bson:"user_id"`
	OriginalTotal   decimal.Decimal `json:"original_total" bson:"original_total"`
	DiscountApplied decimal.Decimal `json:"discount_applied" bson:"discount_applied"`
	DiscountedTotal decimal.Decimal `json:"discounted_total" bson:"discounted_total"`
	UsedAt          time.Time       `json:"used_at" bson:"used_at"`
}
