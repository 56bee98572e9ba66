package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	couponserrors "travelcore/internal/coupons/errors"
	"travelcore/pkg/config"
	"travelcore/pkg/db"
	dbmongo "travelcore/pkg/db/mongo"
	"travelcore/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCouponRepository struct {
	cfg     *config.Config
	coupons *mongo.Collection
	usages  *mongo.Collection
}

func NewMongoCouponRepository(cfg *config.Config) CouponRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCouponRepository{
		cfg:     cfg,
		coupons: database.Collection(CouponCollection),
		usages:  database.Collection(UsageCollection),
	}
}

func activeFilter(now time.Time) bson.M {
	return bson.M{
		"active":     true,
		"valid_from": bson.M{"$lte": now},
		"valid_to":   bson.M{"$gte": now},
		"$expr":      bson.M{"$lt": bson.A{"$used_count", "$max_uses"}},
	}
}

func (r *mongoCouponRepository) Create(ctx context.Context, c *model.Coupon) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.coupons.InsertOne(ctx, c); err != nil {
		err = dbmongo.Classify(err)
		if errors.Is(err, db.ErrDuplicate) {
			return fmt.Errorf("%w: %s", couponserrors.ErrDuplicateCode, c.Code)
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

func (r *mongoCouponRepository) findOne(ctx context.Context, filter bson.M) (*model.Coupon, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var c model.Coupon
	if err := r.coupons.FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, couponserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find coupon: %w", dbmongo.Classify(err))
	}
	return &c, nil
}

func (r *mongoCouponRepository) FindByID(ctx context.Context, id string) (*model.Coupon, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoCouponRepository) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

func (r *mongoCouponRepository) FindActive(ctx context.Context, now time.Time, limit int, offset int64) ([]*model.Coupon, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "valid_to", Value: -1}, {Key: "code", Value: 1}})

	cursor, err := r.coupons.Find(ctx, activeFilter(now), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query coupons: %w", dbmongo.Classify(err))
	}
	defer cursor.Close(ctx)

	var coupons []*model.Coupon
	if err = cursor.All(ctx, &coupons); err != nil {
		return nil, fmt.Errorf("failed to decode coupons: %w", dbmongo.Classify(err))
	}
	return coupons, nil
}

func (r *mongoCouponRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.coupons.CountDocuments(ctx, activeFilter(now))
	if err != nil {
		return 0, fmt.Errorf("failed to count coupons: %w", dbmongo.Classify(err))
	}
	return count, nil
}

func (r *mongoCouponRepository) HasUsage(ctx context.Context, couponID, userID string) (bool, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.usages.CountDocuments(ctx, bson.M{"coupon_id": couponID, "user_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check coupon usage: %w", dbmongo.Classify(err))
	}
	return count > 0, nil
}

func (r *mongoCouponRepository) IncrementUsage(ctx context.Context, id string, version int64) (*model.Coupon, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":     id,
		"version": version,
		"$expr":   bson.M{"$lt": bson.A{"$used_count", "$max_uses"}},
	}
	update := bson.M{"$inc": bson.M{"used_count": 1, "version": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var c model.Coupon
	if err := r.coupons.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, db.ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to increment coupon usage: %w", dbmongo.Classify(err))
	}
	return &c, nil
}

func (r *mongoCouponRepository) CreateUsage(ctx context.Context, u *model.CouponUsage) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, err := r.usages.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("failed to record coupon usage: %w", dbmongo.Classify(err))
	}
	return nil
}
