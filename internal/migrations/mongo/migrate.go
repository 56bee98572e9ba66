package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	couponrepository "travelcore/internal/coupons/repository"
	flightrepository "travelcore/internal/flights/repository"
	hotelrepository "travelcore/internal/hotels/repository"
	"travelcore/internal/migrations/mongo/validators"
	"travelcore/pkg/claim"
	"travelcore/pkg/logger"
)

var (
	CouponsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{
			{Key: "active", Value: 1},
			{Key: "valid_to", Value: -1},
		}},
	}

	CouponUsagesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "coupon_id", Value: 1},
		}, Options: options.Index().SetUnique(true)},
	}

	ScheduleClaimsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "aircraft_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "departure_time", Value: 1},
		}},
		{Keys: bson.D{{Key: "status.status", Value: 1}}},
	}

	FlightLegsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "route_id", Value: 1},
			{Key: "stop_order", Value: 1},
		}, Options: options.Index().SetUnique(true)},
	}

	RoomAvailabilityIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "room_type_id", Value: 1},
			{Key: "date", Value: 1},
		}, Options: options.Index().SetUnique(true)},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "room_type_id", Value: 1},
			{Key: "check_in", Value: 1},
		}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}

	// expired advisory locks are removed by the TTL monitor
	ClaimLocksIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	}
)

type CollectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections lists every collection the services write, with its schema
// validator and indexes.
func Collections() map[string]CollectionDef {
	return map[string]CollectionDef{
		couponrepository.CouponCollection:      {Indexes: CouponsIndexes, Validator: validators.CouponValidator},
		couponrepository.UsageCollection:       {Indexes: CouponUsagesIndexes, Validator: validators.CouponUsageValidator},
		flightrepository.ClaimCollection:       {Indexes: ScheduleClaimsIndexes, Validator: validators.ScheduleClaimValidator},
		flightrepository.AircraftDayCollection: {},
		flightrepository.LegCollection:         {Indexes: FlightLegsIndexes, Validator: validators.FlightLegValidator},
		flightrepository.AircraftCollection:    {Validator: validators.AircraftValidator},
		hotelrepository.RoomTypeCollection:     {Validator: validators.RoomTypeValidator},
		hotelrepository.AvailabilityCollection: {Indexes: RoomAvailabilityIndexes, Validator: validators.RoomAvailabilityValidator},
		hotelrepository.BookingCollection:      {Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		claim.LockCollection:                   {Indexes: ClaimLocksIndexes},
	}
}

// RunMigration creates collections up front; multi-document transactions
// cannot create them implicitly on older servers.
func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for name, def := range Collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
