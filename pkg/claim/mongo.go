package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LockCollection = "claim_locks"
	retryInterval  = 20 * time.Millisecond
)

type lockDocument struct {
	Key       string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoLocker uses advisory lock documents keyed by _id. A duplicate key on
// insert means another holder owns the key. Documents carry an expiry so a
// crashed holder cannot keep a key forever; the TTL index cleans them up and
// Acquire takes over an expired document without waiting for the monitor.
type MongoLocker struct {
	collection *mongo.Collection
	wait       time.Duration
	ttl        time.Duration
}

func NewMongoLocker(db *mongo.Database, wait, ttl time.Duration) *MongoLocker {
	return &MongoLocker{
		collection: db.Collection(LockCollection),
		wait:       wait,
		ttl:        ttl,
	}
}

func (l *MongoLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	waitCtx, cancel := waitBound(ctx, l.wait)
	defer cancel()

	owner := uuid.NewString()
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		now := time.Now().UTC()
		_, err := l.collection.InsertOne(waitCtx, lockDocument{
			Key:       key,
			Owner:     owner,
			ExpiresAt: now.Add(l.ttl),
			CreatedAt: now,
		})
		if err == nil {
			return &mongoLease{collection: l.collection, key: key, owner: owner}, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			if stop := timedOut(ctx, waitCtx); stop != nil {
				return nil, stop
			}
			return nil, fmt.Errorf("failed to insert lock %s: %w", key, err)
		}

		if _, err := l.collection.DeleteOne(waitCtx, bson.M{"_id": key, "expires_at": bson.M{"$lt": now}}); err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("failed to clear expired lock %s: %w", key, err)
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			return nil, timedOut(ctx, waitCtx)
		}
	}
}

type mongoLease struct {
	collection *mongo.Collection
	key        string
	owner      string
}

func (m *mongoLease) Key() string {
	return m.key
}

// Release only removes the document if this lease still owns it.
func (m *mongoLease) Release(ctx context.Context) error {
	_, err := m.collection.DeleteOne(ctx, bson.M{"_id": m.key, "owner": m.owner})
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", m.key, err)
	}
	return nil
}
