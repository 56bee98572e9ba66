package config

import "time"

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	LockMemory = "memory"
	LockMongo  = "mongo"
	LockRedis  = "redis"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "travelcore"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultStoreDriver     = StoreMongo
	DefaultLockDriver      = LockMongo
	DefaultLockWaitTimeout = 3 * time.Second
	DefaultLockTTL         = 30 * time.Second

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisDB        = 0
	DefaultRedisKeyPrefix = "travelcore:lock:"

	DefaultEventsEnabled = false
	DefaultCurrency      = "INR"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)

// MaxStayNights is the longest stay one booking or quote may cover.
const MaxStayNights = 30
