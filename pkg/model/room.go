package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomType holds the per-room occupancy limits and extra-guest charges.
type RoomType struct {
	ID               string          `json:"id,omitempty" bson:"_id,omitempty"`
	HotelID          string          `json:"hotel_id" bson:"hotel_id" validate:"required"`
	Name             string          `json:"name" bson:"name" validate:"required,min=2,max=100"`
	MaxAdults        int             `json:"max_adults" bson:"max_adults" validate:"required,min=1"`
	MaxChildren      int             `json:"max_children" bson:"max_children" validate:"min=0"`
	MaxOccupancy     int             `json:"max_occupancy" bson:"max_occupancy" validate:"required,min=1"`
	IncludedAdults   int             `json:"included_adults" bson:"included_adults" validate:"min=0,ltefield=MaxAdults"`
	IncludedChildren int             `json:"included_children" bson:"included_children" validate:"min=0,ltefield=MaxChildren"`
	ExtraAdultCharge decimal.Decimal `json:"extra_adult_charge" bson:"extra_adult_charge"`
	ExtraChildCharge decimal.Decimal `json:"extra_child_charge" bson:"extra_child_charge"`
	Active           bool            `json:"active" bson:"active"`
	CreatedAt        time.Time       `json:"created_at" bson:"created_at"`
}

// RoomAvailability is the inventory and rate card for one room type on one
// date. The final nightly price is always derived, never stored.
type RoomAvailability struct {
	ID                 string          `json:"id,omitempty" bson:"_id,omitempty"`
	RoomTypeID         string          `json:"room_type_id" bson:"room_type_id"`
	Date               time.Time       `json:"date" bson:"date"`
	AvailableRooms     int             `json:"available_rooms" bson:"available_rooms" validate:"min=0"`
	BlockedRooms       int             `json:"blocked_rooms" bson:"blocked_rooms" validate:"min=0"`
	PricePerNight      decimal.Decimal `json:"price_per_night" bson:"price_per_night"`
	WeekendSurcharge   decimal.Decimal `json:"weekend_surcharge" bson:"weekend_surcharge"`
	SeasonalSurcharge  decimal.Decimal `json:"seasonal_surcharge" bson:"seasonal_surcharge"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" bson:"discount_percentage"`
	TaxPercentage      decimal.Decimal `json:"tax_percentage" bson:"tax_percentage"`
	IsAvailable        bool            `json:"is_available" bson:"is_available"`
	MinStayNights      int             `json:"min_stay_nights" bson:"min_stay_nights" validate:"min=1"`
	Version            int64           `json:"-" bson:"version"`
}

// Sellable is the count of rooms a new booking may take.
func (r *RoomAvailability) Sellable() int {
	return max(r.AvailableRooms-r.BlockedRooms, 0)
}

type BookingStatus string

const BookingConfirmed BookingStatus = "confirmed"

// NightPrice is the unrounded per-room price breakdown of one night.
type NightPrice struct {
	Date          time.Time       `json:"date" bson:"date"`
	Base          decimal.Decimal `json:"base" bson:"base"`
	AfterDiscount decimal.Decimal `json:"after_discount" bson:"after_discount"`
	Tax           decimal.Decimal `json:"tax" bson:"tax"`
	Final         decimal.Decimal `json:"final" bson:"final"`
}

// Booking is written once, as the side effect of a committed room claim.
type Booking struct {
	ID          string          `json:"id,omitempty" bson:"_id,omitempty"`
	RoomTypeID  string          `json:"room_type_id" bson:"room_type_id"`
	UserID      string          `json:"user_id,omitempty" bson:"user_id,omitempty"`
	CheckIn     time.Time       `json:"check_in" bson:"check_in"`
	CheckOut    time.Time       `json:"check_out" bson:"check_out"`
	Nights      int             `json:"total_nights" bson:"total_nights"`
	Rooms       int             `json:"total_rooms" bson:"total_rooms"`
	Adults      int             `json:"total_adults" bson:"total_adults"`
	Children    int             `json:"total_children" bson:"total_children"`
	Nightly     []NightPrice    `json:"nightly" bson:"nightly"`
	ExtraGuests decimal.Decimal `json:"extra_guest_charges" bson:"extra_guest_charges"`
	Subtotal    decimal.Decimal `json:"subtotal" bson:"subtotal"`
	Tax         decimal.Decimal `json:"tax" bson:"tax"`
	CouponCode  string          `json:"coupon_code,omitempty" bson:"coupon_code,omitempty"`
	Discount    decimal.Decimal `json:"discount" bson:"discount"`
	FinalTotal  decimal.Decimal `json:"final_total" bson:"final_total"`
	Currency    string          `json:"currency" bson:"currency"`
	Status      BookingStatus   `json:"status" bson:"status"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
}
