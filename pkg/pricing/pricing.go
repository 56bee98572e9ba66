// Package pricing composes monetary amounts from rate components. Every
// intermediate value is kept unrounded; rounding to the currency minor unit
// happens once, at the end of a whole computation.
package pricing

import (
	"travelcore/pkg/model"

	"github.com/shopspring/decimal"
)

// MinorUnitPlaces is the number of decimal places of the currency minor unit.
const MinorUnitPlaces = 2

var hundred = decimal.NewFromInt(100)

func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// Round applies the single final rounding step.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnitPlaces)
}

// CouponDiscount returns the discounted total and the amount taken off,
// both unrounded. The result never goes below zero.
func CouponDiscount(kind model.DiscountType, value, total decimal.Decimal) (discounted, applied decimal.Decimal) {
	var discount decimal.Decimal
	if kind == model.DiscountPercent {
		discount = percentOf(total, value)
	} else {
		discount = value
	}

	discounted = total.Sub(discount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	return discounted, total.Sub(discounted)
}

// Nightly prices one room for one night. The order is fixed: additive
// surcharges, then the percentage discount, then the percentage tax.
func Nightly(r *model.RoomAvailability) model.NightPrice {
	base := r.PricePerNight.Add(r.WeekendSurcharge).Add(r.SeasonalSurcharge)
	afterDiscount := base.Sub(percentOf(base, r.DiscountPercentage))
	tax := percentOf(afterDiscount, r.TaxPercentage)

	return model.NightPrice{
		Date:          r.Date,
		Base:          base,
		AfterDiscount: afterDiscount,
		Tax:           tax,
		Final:         afterDiscount.Add(tax),
	}
}

// ExtraGuests is the per-night charge for guests above what the booked rooms
// include. Extra-guest charges are not taxed.
func ExtraGuests(rt *model.RoomType, rooms, adults, children int) decimal.Decimal {
	extraAdults := max(adults-rooms*rt.IncludedAdults, 0)
	extraChildren := max(children-rooms*rt.IncludedChildren, 0)

	return rt.ExtraAdultCharge.Mul(decimal.NewFromInt(int64(extraAdults))).
		Add(rt.ExtraChildCharge.Mul(decimal.NewFromInt(int64(extraChildren))))
}

// Coupon is the booking-level discount, applied after room pricing.
type Coupon struct {
	Code  string
	Kind  model.DiscountType
	Value decimal.Decimal
}

// Quote is a rounded booking price. Gross is the unrounded subtotal the
// coupon was applied to.
type Quote struct {
	Nightly     []model.NightPrice
	ExtraGuests decimal.Decimal
	Gross       decimal.Decimal
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Discount    decimal.Decimal
	FinalTotal  decimal.Decimal
}

// Booking sums every night across every room, adds extra-guest charges and
// then, as a separate later step, applies the coupon to that subtotal.
// Subtotal already includes tax; Tax reports the tax share of it.
func Booking(records []*model.RoomAvailability, rt *model.RoomType, rooms, adults, children int, coupon *Coupon) Quote {
	roomCount := decimal.NewFromInt(int64(rooms))
	perNightExtra := ExtraGuests(rt, rooms, adults, children)

	q := Quote{
		Nightly:     make([]model.NightPrice, 0, len(records)),
		ExtraGuests: decimal.Zero,
		Subtotal:    decimal.Zero,
		Tax:         decimal.Zero,
		Discount:    decimal.Zero,
	}

	for _, r := range records {
		night := Nightly(r)
		q.Nightly = append(q.Nightly, night)
		q.Subtotal = q.Subtotal.Add(night.Final.Mul(roomCount))
		q.Tax = q.Tax.Add(night.Tax.Mul(roomCount))
		q.ExtraGuests = q.ExtraGuests.Add(perNightExtra)
	}
	q.Subtotal = q.Subtotal.Add(q.ExtraGuests)
	q.Gross = q.Subtotal

	total := q.Subtotal
	if coupon != nil {
		total, q.Discount = CouponDiscount(coupon.Kind, coupon.Value, q.Subtotal)
	}

	q.Subtotal = Round(q.Subtotal)
	q.Tax = Round(q.Tax)
	q.ExtraGuests = Round(q.ExtraGuests)
	q.Discount = Round(q.Discount)
	q.FinalTotal = Round(total)
	return q
}
