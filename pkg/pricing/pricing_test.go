package pricing

import (
	"testing"
	"time"

	"travelcore/pkg/model"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCouponDiscount(t *testing.T) {
	tests := []struct {
		name           string
		kind           model.DiscountType
		value          string
		total          string
		wantDiscounted string
		wantApplied    string
	}{
		{
			name:           "percent off",
			kind:           model.DiscountPercent,
			value:          "10",
			total:          "200",
			wantDiscounted: "180",
			wantApplied:    "20",
		},
		{
			name:           "fixed off",
			kind:           model.DiscountFixed,
			value:          "50",
			total:          "300",
			wantDiscounted: "250",
			wantApplied:    "50",
		},
		{
			name:           "fixed larger than total floors at zero",
			kind:           model.DiscountFixed,
			value:          "500",
			total:          "300",
			wantDiscounted: "0",
			wantApplied:    "300",
		},
		{
			name:           "full percent",
			kind:           model.DiscountPercent,
			value:          "100",
			total:          "99.99",
			wantDiscounted: "0",
			wantApplied:    "99.99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discounted, applied := CouponDiscount(tt.kind, dec(tt.value), dec(tt.total))
			if !discounted.Equal(dec(tt.wantDiscounted)) {
				t.Errorf("discounted = %s, want %s", discounted, tt.wantDiscounted)
			}
			if !applied.Equal(dec(tt.wantApplied)) {
				t.Errorf("applied = %s, want %s", applied, tt.wantApplied)
			}
		})
	}
}

func TestNightly_ComponentOrder(t *testing.T) {
	record := &model.RoomAvailability{
		PricePerNight:      dec("1000"),
		WeekendSurcharge:   dec("200"),
		SeasonalSurcharge:  dec("0"),
		DiscountPercentage: dec("10"),
		TaxPercentage:      dec("12"),
	}

	night := Nightly(record)

	if !night.Base.Equal(dec("1200")) {
		t.Errorf("base = %s, want 1200", night.Base)
	}
	if !night.AfterDiscount.Equal(dec("1080")) {
		t.Errorf("after discount = %s, want 1080", night.AfterDiscount)
	}
	if !night.Tax.Equal(dec("129.6")) {
		t.Errorf("tax = %s, want 129.6", night.Tax)
	}
	if got := Round(night.Final).StringFixed(2); got != "1209.60" {
		t.Errorf("final = %s, want 1209.60", got)
	}
}

func TestNightly_NoPerStepRounding(t *testing.T) {
	record := &model.RoomAvailability{
		PricePerNight:      dec("33.33"),
		DiscountPercentage: dec("33.3"),
		TaxPercentage:      dec("18"),
	}

	night := Nightly(record)

	// 33.33 * 0.667 = 22.23111, * 1.18 = 26.2327098
	if !night.Final.Equal(dec("26.2327098")) {
		t.Errorf("final = %s, want unrounded 26.2327098", night.Final)
	}
}

func TestBooking_AppliesCouponAfterRoomPricing(t *testing.T) {
	day := time.Date(2026, 11, 6, 0, 0, 0, 0, time.UTC)
	records := []*model.RoomAvailability{
		{
			Date:               day,
			PricePerNight:      dec("1000"),
			WeekendSurcharge:   dec("200"),
			DiscountPercentage: dec("10"),
			TaxPercentage:      dec("12"),
		},
		{
			Date:          day.AddDate(0, 0, 1),
			PricePerNight: dec("1000"),
			TaxPercentage: dec("12"),
		},
	}
	rt := &model.RoomType{
		MaxAdults:        3,
		MaxOccupancy:     3,
		IncludedAdults:   2,
		ExtraAdultCharge: dec("150"),
	}

	quote := Booking(records, rt, 1, 3, 0, &Coupon{Code: "SAVE10", Kind: model.DiscountPercent, Value: dec("10")})

	// nights: 1209.60 + 1120.00, extra adult 2 * 150
	if got := quote.Subtotal.StringFixed(2); got != "2629.60" {
		t.Errorf("subtotal = %s, want 2629.60", got)
	}
	if got := quote.Tax.StringFixed(2); got != "249.60" {
		t.Errorf("tax = %s, want 249.60", got)
	}
	if got := quote.ExtraGuests.StringFixed(2); got != "300.00" {
		t.Errorf("extra guests = %s, want 300.00", got)
	}
	if got := quote.Discount.StringFixed(2); got != "262.96" {
		t.Errorf("discount = %s, want 262.96", got)
	}
	if got := quote.FinalTotal.StringFixed(2); got != "2366.64" {
		t.Errorf("final total = %s, want 2366.64", got)
	}
	if len(quote.Nightly) != 2 {
		t.Errorf("expected 2 nightly entries, got %d", len(quote.Nightly))
	}
}

func TestBooking_MultipleRoomsNoCoupon(t *testing.T) {
	records := []*model.RoomAvailability{
		{PricePerNight: dec("100"), TaxPercentage: dec("5")},
	}
	rt := &model.RoomType{MaxAdults: 2, MaxOccupancy: 2, IncludedAdults: 2}

	quote := Booking(records, rt, 3, 4, 0, nil)

	if got := quote.Subtotal.StringFixed(2); got != "315.00" {
		t.Errorf("subtotal = %s, want 315.00", got)
	}
	if !quote.FinalTotal.Equal(quote.Subtotal) {
		t.Errorf("final total %s should equal subtotal %s without coupon", quote.FinalTotal, quote.Subtotal)
	}
	if !quote.Discount.IsZero() {
		t.Errorf("discount = %s, want 0", quote.Discount)
	}
}

func TestExtraGuests(t *testing.T) {
	rt := &model.RoomType{
		IncludedAdults:   2,
		IncludedChildren: 1,
		ExtraAdultCharge: dec("500"),
		ExtraChildCharge: dec("250"),
	}

	tests := []struct {
		name     string
		rooms    int
		adults   int
		children int
		want     string
	}{
		{name: "within included", rooms: 1, adults: 2, children: 1, want: "0"},
		{name: "one extra adult", rooms: 1, adults: 3, children: 0, want: "500"},
		{name: "extra of each", rooms: 1, adults: 3, children: 2, want: "750"},
		{name: "two rooms absorb guests", rooms: 2, adults: 4, children: 2, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtraGuests(rt, tt.rooms, tt.adults, tt.children)
			if !got.Equal(dec(tt.want)) {
				t.Errorf("ExtraGuests() = %s, want %s", got, tt.want)
			}
		})
	}
}
