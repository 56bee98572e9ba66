package validator

import (
	"errors"
	"testing"
	"time"

	"travelcore/pkg/logger"
	"travelcore/pkg/model"

	"github.com/shopspring/decimal"
)

func fields(err error) map[string]bool {
	out := map[string]bool{}
	var errs ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			out[e.Field] = true
		}
	}
	return out
}

func TestHotelValidator_ValidateRoomType(t *testing.T) {
	v := NewHotelValidator(logger.Discard())

	valid := func() *model.RoomType {
		return &model.RoomType{
			HotelID: "h1", Name: "Deluxe", MaxAdults: 2, MaxChildren: 1, MaxOccupancy: 3,
			IncludedAdults: 2, ExtraAdultCharge: decimal.NewFromInt(200), Active: true,
		}
	}

	tests := []struct {
		name      string
		mutate    func(rt *model.RoomType)
		wantField string
	}{
		{name: "valid", mutate: func(rt *model.RoomType) {}},
		{name: "missing name", mutate: func(rt *model.RoomType) { rt.Name = "" }, wantField: "Name"},
		{name: "included above max", mutate: func(rt *model.RoomType) { rt.IncludedAdults = 3 }, wantField: "IncludedAdults"},
		{name: "occupancy above guests", mutate: func(rt *model.RoomType) { rt.MaxOccupancy = 4 }, wantField: "MaxOccupancy"},
		{name: "negative charge", mutate: func(rt *model.RoomType) { rt.ExtraChildCharge = decimal.NewFromInt(-1) }, wantField: "ExtraChildCharge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := valid()
			tt.mutate(rt)
			err := v.ValidateRoomType(rt)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !fields(err)[tt.wantField] {
				t.Errorf("expected error on %s, got %v", tt.wantField, err)
			}
		})
	}
}

func TestHotelValidator_ValidateAvailability(t *testing.T) {
	v := NewHotelValidator(logger.Discard())

	valid := func() *model.RoomAvailability {
		return &model.RoomAvailability{
			RoomTypeID: "rt1", Date: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
			AvailableRooms: 5, PricePerNight: decimal.NewFromInt(1000),
			TaxPercentage: decimal.NewFromInt(12), IsAvailable: true, MinStayNights: 1,
		}
	}

	tests := []struct {
		name      string
		mutate    func(a *model.RoomAvailability)
		wantField string
	}{
		{name: "valid", mutate: func(a *model.RoomAvailability) {}},
		{name: "zero price", mutate: func(a *model.RoomAvailability) { a.PricePerNight = decimal.Zero }, wantField: "PricePerNight"},
		{name: "discount over 100", mutate: func(a *model.RoomAvailability) { a.DiscountPercentage = decimal.NewFromInt(101) }, wantField: "DiscountPercentage"},
		{name: "negative tax", mutate: func(a *model.RoomAvailability) { a.TaxPercentage = decimal.NewFromInt(-1) }, wantField: "TaxPercentage"},
		{name: "blocked above available", mutate: func(a *model.RoomAvailability) { a.BlockedRooms = 6 }, wantField: "BlockedRooms"},
		{name: "min stay zero", mutate: func(a *model.RoomAvailability) { a.MinStayNights = 0 }, wantField: "MinStayNights"},
		{name: "negative rooms", mutate: func(a *model.RoomAvailability) { a.AvailableRooms = -1 }, wantField: "AvailableRooms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid()
			tt.mutate(a)
			err := v.ValidateAvailability(a)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !fields(err)[tt.wantField] {
				t.Errorf("expected error on %s, got %v", tt.wantField, err)
			}
		})
	}
}

func TestHotelValidator_ValidateStay(t *testing.T) {
	v := NewHotelValidator(logger.Discard())

	valid := StayInput{RoomTypeID: "rt1", CheckIn: "2026-11-01", CheckOut: "2026-11-03", Rooms: 1, Adults: 2}

	tests := []struct {
		name      string
		mutate    func(in *StayInput)
		wantField string
	}{
		{name: "valid", mutate: func(in *StayInput) {}},
		{name: "same day", mutate: func(in *StayInput) { in.CheckOut = in.CheckIn }, wantField: "CheckOut"},
		{name: "longest stay", mutate: func(in *StayInput) { in.CheckOut = "2026-12-01" }},
		{name: "one night too long", mutate: func(in *StayInput) { in.CheckOut = "2026-12-02" }, wantField: "CheckOut"},
		{name: "year long", mutate: func(in *StayInput) { in.CheckOut = "2027-11-01" }, wantField: "CheckOut"},
		{name: "bad date", mutate: func(in *StayInput) { in.CheckIn = "tomorrow" }, wantField: "CheckIn"},
		{name: "no rooms", mutate: func(in *StayInput) { in.Rooms = 0 }, wantField: "Rooms"},
		{name: "no adults", mutate: func(in *StayInput) { in.Adults = 0 }, wantField: "Adults"},
		{name: "coupon without user", mutate: func(in *StayInput) { in.CouponCode = "SAVE10" }, wantField: "UserID"},
		{name: "coupon with user", mutate: func(in *StayInput) {
			in.CouponCode = "SAVE10"
			in.UserID = "u1"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := v.ValidateStay(in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !fields(err)[tt.wantField] {
				t.Errorf("expected error on %s, got %v", tt.wantField, err)
			}
		})
	}
}
