package repository

import (
	"context"
	"time"

	"travelcore/pkg/model"
)

const (
	RoomTypeCollection     = "room_types"
	AvailabilityCollection = "room_availability"
	BookingCollection      = "bookings"
)

// HotelRepository stores room types, per-night availability and bookings.
//
// UpsertAvailability matches on (room_type_id, date) and bumps Version.
// DecrementRooms is the booking compare-and-swap: it applies only when the
// record still has the given version and enough sellable rooms, and returns
// db.ErrVersionConflict otherwise.
type HotelRepository interface {
	CreateRoomType(ctx context.Context, rt *model.RoomType) error
	FindRoomType(ctx context.Context, id string) (*model.RoomType, error)
	UpsertAvailability(ctx context.Context, a *model.RoomAvailability) (*model.RoomAvailability, error)
	FindAvailability(ctx context.Context, roomTypeID string, from, to time.Time) ([]*model.RoomAvailability, error)
	DecrementRooms(ctx context.Context, id string, version int64, rooms int) (*model.RoomAvailability, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
	FindBooking(ctx context.Context, id string) (*model.Booking, error)
}
