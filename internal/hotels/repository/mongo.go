package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	hotelserrors "travelcore/internal/hotels/errors"
	"travelcore/pkg/config"
	"travelcore/pkg/db"
	dbmongo "travelcore/pkg/db/mongo"
	"travelcore/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoHotelRepository struct {
	cfg          *config.Config
	roomTypes    *mongo.Collection
	availability *mongo.Collection
	bookings     *mongo.Collection
}

func NewMongoHotelRepository(cfg *config.Config) HotelRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoHotelRepository{
		cfg:          cfg,
		roomTypes:    database.Collection(RoomTypeCollection),
		availability: database.Collection(AvailabilityCollection),
		bookings:     database.Collection(BookingCollection),
	}
}

func (r *mongoHotelRepository) CreateRoomType(ctx context.Context, rt *model.RoomType) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	rt.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.roomTypes.InsertOne(ctx, rt); err != nil {
		return fmt.Errorf("failed to create room type: %w", dbmongo.Classify(err))
	}
	return nil
}

func (r *mongoHotelRepository) FindRoomType(ctx context.Context, id string) (*model.RoomType, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var rt model.RoomType
	if err := r.roomTypes.FindOne(ctx, bson.M{"_id": id}).Decode(&rt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", hotelserrors.ErrRoomTypeNotFound, id)
		}
		return nil, fmt.Errorf("failed to find room type: %w", dbmongo.Classify(err))
	}
	return &rt, nil
}

func (r *mongoHotelRepository) UpsertAvailability(ctx context.Context, a *model.RoomAvailability) (*model.RoomAvailability, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"room_type_id": a.RoomTypeID, "date": a.Date}
	update := bson.M{
		"$set": bson.M{
			"available_rooms":     a.AvailableRooms,
			"blocked_rooms":       a.BlockedRooms,
			"price_per_night":     a.PricePerNight,
			"weekend_surcharge":   a.WeekendSurcharge,
			"seasonal_surcharge":  a.SeasonalSurcharge,
			"discount_percentage": a.DiscountPercentage,
			"tax_percentage":      a.TaxPercentage,
			"is_available":        a.IsAvailable,
			"min_stay_nights":     a.MinStayNights,
		},
		"$inc":         bson.M{"version": 1},
		"$setOnInsert": bson.M{"_id": uuid.NewString()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored model.RoomAvailability
	if err := r.availability.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to upsert availability: %w", dbmongo.Classify(err))
	}
	return &stored, nil
}

func (r *mongoHotelRepository) FindAvailability(ctx context.Context, roomTypeID string, from, to time.Time) ([]*model.RoomAvailability, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"room_type_id": roomTypeID,
		"date":         bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.availability.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", dbmongo.Classify(err))
	}
	defer cursor.Close(ctx)

	records := []*model.RoomAvailability{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode availability: %w", dbmongo.Classify(err))
	}
	return records, nil
}

func (r *mongoHotelRepository) DecrementRooms(ctx context.Context, id string, version int64, rooms int) (*model.RoomAvailability, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":     id,
		"version": version,
		"$expr": bson.M{"$gte": bson.A{
			bson.M{"$subtract": bson.A{"$available_rooms", "$blocked_rooms"}},
			rooms,
		}},
	}
	update := bson.M{"$inc": bson.M{"available_rooms": -rooms, "version": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.RoomAvailability
	if err := r.availability.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, db.ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to decrement availability: %w", dbmongo.Classify(err))
	}
	return &updated, nil
}

func (r *mongoHotelRepository) CreateBooking(ctx context.Context, b *model.Booking) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.bookings.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("failed to create booking: %w", dbmongo.Classify(err))
	}
	return nil
}

func (r *mongoHotelRepository) FindBooking(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var b model.Booking
	if err := r.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", hotelserrors.ErrBookingNotFound, id)
		}
		return nil, fmt.Errorf("failed to find booking: %w", dbmongo.Classify(err))
	}
	return &b, nil
}
