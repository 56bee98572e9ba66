package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"travelcore/pkg/logger"

	"github.com/redis/go-redis/v9"
)

type idempotencyEntry struct {
	response  *CachedResponse
	expiresAt time.Time
}

// InMemoryIdempotencyStore keeps keys for one process. An entry with a nil
// response is a reservation.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
	ttl     time.Duration
	stopCh  chan struct{}
	once    sync.Once
	now     func() time.Time
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	go store.cleanup()

	return store
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok || entry.response == nil {
		return nil, false
	}
	return entry.response, true
}

func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(key); ok {
		return false
	}
	s.entries[key] = idempotencyEntry{expiresAt: s.now().Add(s.ttl)}
	return true
}

func (s *InMemoryIdempotencyStore) Complete(_ context.Context, key string, response *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = idempotencyEntry{response: response, expiresAt: s.now().Add(s.ttl)}
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && entry.response == nil {
		delete(s.entries, key)
	}
}

// live must be called with mu held.
func (s *InMemoryIdempotencyStore) live(key string) (idempotencyEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return entry, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return entry, false
	}
	return entry, true
}

func (s *InMemoryIdempotencyStore) cleanup() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for key, entry := range s.entries {
				if now.After(entry.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}

const pendingMarker = "pending"

// RedisIdempotencyStore shares keys between service instances. A reservation
// is the pending marker written with SET NX; completion overwrites it with
// the encoded response.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisIdempotencyStore(client *redis.Client, prefix string, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: prefix + "idem:", ttl: ttl, log: log}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("Idempotency lookup failed", "key", key, "error", err)
		}
		return nil, false
	}
	if string(raw) == pendingMarker {
		return nil, false
	}

	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.log.Warn("Dropping unreadable idempotency entry", "key", key, "error", err)
		return nil, false
	}
	return &cached, true
}

// Reserve fails open when redis is unreachable; the claim coordinator still
// guards the inventory itself.
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) bool {
	ok, err := s.client.SetNX(ctx, s.prefix+key, pendingMarker, s.ttl).Result()
	if err != nil {
		s.log.Warn("Idempotency reservation failed", "key", key, "error", err)
		return true
	}
	return ok
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, response *CachedResponse) {
	raw, err := json.Marshal(response)
	if err != nil {
		s.log.Error("Failed to encode idempotent response", "key", key, "error", err)
		s.Release(ctx, key)
		return
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, s.ttl).Err(); err != nil {
		s.log.Warn("Failed to store idempotent response", "key", key, "error", err)
	}
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) {
	if err := releasePending.Run(ctx, s.client, []string{s.prefix + key}, pendingMarker).Err(); err != nil {
		s.log.Warn("Failed to release idempotency reservation", "key", key, "error", err)
	}
}

func (s *RedisIdempotencyStore) Stop() {}

var releasePending = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)
