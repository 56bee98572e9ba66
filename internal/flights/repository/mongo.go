package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	flightserrors "travelcore/internal/flights/errors"
	"travelcore/pkg/config"
	"travelcore/pkg/db"
	dbmongo "travelcore/pkg/db/mongo"
	"travelcore/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoFlightRepository struct {
	cfg          *config.Config
	claims       *mongo.Collection
	aircraftDays *mongo.Collection
	legs         *mongo.Collection
	aircraft     *mongo.Collection
}

func NewMongoFlightRepository(cfg *config.Config) FlightRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoFlightRepository{
		cfg:          cfg,
		claims:       database.Collection(ClaimCollection),
		aircraftDays: database.Collection(AircraftDayCollection),
		legs:         database.Collection(LegCollection),
		aircraft:     database.Collection(AircraftCollection),
	}
}

func (r *mongoFlightRepository) CreateClaim(ctx context.Context, c *model.ScheduleClaim) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.aircraftDays.UpdateOne(ctx,
		bson.M{"_id": c.AircraftID + "|" + c.Date},
		bson.M{
			"$inc":         bson.M{"revision": 1},
			"$setOnInsert": bson.M{"aircraft_id": c.AircraftID, "date": c.Date},
		},
		options.Update().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("failed to reserve aircraft day: %w", dbmongo.Classify(err))
	}

	if _, err := r.claims.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("failed to create schedule claim: %w", dbmongo.Classify(err))
	}
	return nil
}

func (r *mongoFlightRepository) FindClaimByID(ctx context.Context, id string) (*model.ScheduleClaim, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var c model.ScheduleClaim
	if err := r.claims.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", flightserrors.ErrClaimNotFound, id)
		}
		return nil, fmt.Errorf("failed to find schedule claim: %w", dbmongo.Classify(err))
	}
	return &c, nil
}

func (r *mongoFlightRepository) FindClaims(ctx context.Context, aircraftID, date string) ([]*model.ScheduleClaim, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "departure_time", Value: 1}})
	cursor, err := r.claims.Find(ctx, bson.M{"aircraft_id": aircraftID, "date": date}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule claims: %w", dbmongo.Classify(err))
	}
	defer cursor.Close(ctx)

	claims := []*model.ScheduleClaim{}
	if err = cursor.All(ctx, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode schedule claims: %w", dbmongo.Classify(err))
	}
	return claims, nil
}

func (r *mongoFlightRepository) UpdateClaimStatus(ctx context.Context, id string, status model.ScheduleStatus) (*model.ScheduleClaim, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"status": model.StatusField{ScheduleStatus: status}}}

	var c model.ScheduleClaim
	if err := r.claims.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", flightserrors.ErrClaimNotFound, id)
		}
		return nil, fmt.Errorf("failed to update schedule claim: %w", dbmongo.Classify(err))
	}
	return &c, nil
}

func (r *mongoFlightRepository) CreateLeg(ctx context.Context, l *model.FlightLeg) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.legs.InsertOne(ctx, l); err != nil {
		err = dbmongo.Classify(err)
		if errors.Is(err, db.ErrDuplicate) {
			return fmt.Errorf("%w: route %s stop %d", flightserrors.ErrDuplicateStopOrder, l.RouteID, l.StopOrder)
		}
		return fmt.Errorf("failed to create flight leg: %w", err)
	}
	return nil
}

func (r *mongoFlightRepository) FindLegs(ctx context.Context, routeID string) ([]*model.FlightLeg, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "stop_order", Value: 1}})
	cursor, err := r.legs.Find(ctx, bson.M{"route_id": routeID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight legs: %w", dbmongo.Classify(err))
	}
	defer cursor.Close(ctx)

	legs := []*model.FlightLeg{}
	if err = cursor.All(ctx, &legs); err != nil {
		return nil, fmt.Errorf("failed to decode flight legs: %w", dbmongo.Classify(err))
	}
	return legs, nil
}

func (r *mongoFlightRepository) SaveAircraft(ctx context.Context, a *model.Aircraft) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	a.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.aircraft.ReplaceOne(ctx, bson.M{"_id": a.ID}, a, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to save aircraft: %w", dbmongo.Classify(err))
	}
	return nil
}

func (r *mongoFlightRepository) FindAircraft(ctx context.Context, id string) (*model.Aircraft, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var a model.Aircraft
	if err := r.aircraft.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", flightserrors.ErrAircraftNotFound, id)
		}
		return nil, fmt.Errorf("failed to find aircraft: %w", dbmongo.Classify(err))
	}
	return &a, nil
}
