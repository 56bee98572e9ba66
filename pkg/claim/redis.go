package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker takes a key with SET NX PX and releases it with a
// compare-and-delete script so a lease never frees someone else's key.
type RedisLocker struct {
	client *redis.Client
	prefix string
	wait   time.Duration
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, prefix string, wait, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, wait: wait, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	waitCtx, cancel := waitBound(ctx, l.wait)
	defer cancel()

	token := uuid.NewString()
	redisKey := l.prefix + key
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil {
			if stop := timedOut(ctx, waitCtx); stop != nil {
				return nil, stop
			}
			return nil, fmt.Errorf("failed to set lock %s: %w", key, err)
		}
		if ok {
			return &redisLease{client: l.client, key: key, redisKey: redisKey, token: token}, nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			return nil, timedOut(ctx, waitCtx)
		}
	}
}

type redisLease struct {
	client   *redis.Client
	key      string
	redisKey string
	token    string
}

func (r *redisLease) Key() string {
	return r.key
}

func (r *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.redisKey}, r.token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", r.key, err)
	}
	return nil
}
