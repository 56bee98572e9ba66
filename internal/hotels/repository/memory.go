package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	hotelserrors "travelcore/internal/hotels/errors"
	"travelcore/pkg/db"
	"travelcore/pkg/db/memory"
	"travelcore/pkg/model"

	"github.com/google/uuid"
)

type memoryHotelRepository struct {
	roomTypes    *memory.Table[model.RoomType]
	availability *memory.Table[model.RoomAvailability]
	bookings     *memory.Table[model.Booking]
}

func NewMemoryHotelRepository() HotelRepository {
	return &memoryHotelRepository{
		roomTypes: memory.NewTable[model.RoomType](),
		availability: memory.NewTable[model.RoomAvailability](func(a model.RoomAvailability) string {
			return a.RoomTypeID + "|" + a.Date.Format(model.DateLayout)
		}).OrderBy(func(a, b model.RoomAvailability) bool {
			return a.Date.Before(b.Date)
		}),
		bookings: memory.NewTable[model.Booking](),
	}
}

func (r *memoryHotelRepository) CreateRoomType(ctx context.Context, rt *model.RoomType) error {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	rt.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return r.roomTypes.Insert(ctx, rt.ID, *rt)
}

func (r *memoryHotelRepository) FindRoomType(ctx context.Context, id string) (*model.RoomType, error) {
	rt, err := r.roomTypes.Get(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", hotelserrors.ErrRoomTypeNotFound, id)
		}
		return nil, err
	}
	return &rt, nil
}

func (r *memoryHotelRepository) UpsertAvailability(ctx context.Context, a *model.RoomAvailability) (*model.RoomAvailability, error) {
	row := *a
	row.ID = uuid.NewString()
	row.Version = 1

	_, stored := r.availability.Upsert(ctx, row.ID, row, func(existing *model.RoomAvailability, incoming model.RoomAvailability) {
		id, version := existing.ID, existing.Version
		*existing = incoming
		existing.ID = id
		existing.Version = version + 1
	})
	return &stored, nil
}

func (r *memoryHotelRepository) FindAvailability(ctx context.Context, roomTypeID string, from, to time.Time) ([]*model.RoomAvailability, error) {
	rows := r.availability.Find(ctx, func(a model.RoomAvailability) bool {
		return a.RoomTypeID == roomTypeID && !a.Date.Before(from) && a.Date.Before(to)
	})
	out := make([]*model.RoomAvailability, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (r *memoryHotelRepository) DecrementRooms(ctx context.Context, id string, version int64, rooms int) (*model.RoomAvailability, error) {
	updated, err := r.availability.Update(ctx, id, func(a *model.RoomAvailability) error {
		if a.Version != version || a.Sellable() < rooms {
			return db.ErrVersionConflict
		}
		a.AvailableRooms -= rooms
		a.Version++
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, db.ErrVersionConflict
		}
		return nil, err
	}
	return &updated, nil
}

func (r *memoryHotelRepository) CreateBooking(ctx context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return r.bookings.Insert(ctx, b.ID, *b)
}

func (r *memoryHotelRepository) FindBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := r.bookings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", hotelserrors.ErrBookingNotFound, id)
		}
		return nil, err
	}
	return &b, nil
}
