package app

import (
	"fmt"

	"travelcore/pkg/claim"
	"travelcore/pkg/config"
	"travelcore/pkg/db"
	"travelcore/pkg/db/memory"
	dbmongo "travelcore/pkg/db/mongo"
	"travelcore/pkg/events"
	"travelcore/pkg/kafka"
	kafka_middleware "travelcore/pkg/kafka/middleware"

	"github.com/prometheus/client_golang/prometheus"
)

// Connect opens the clients the configured drivers need.
func Connect(cfg *config.Config) {
	if cfg.UsesMongo() {
		cfg.SetMongo()
	}
	if cfg.LockDriver == config.LockRedis {
		cfg.SetRedis()
	}
}

func NewLocker(cfg *config.Config) (claim.Locker, error) {
	switch cfg.LockDriver {
	case config.LockMemory:
		return claim.NewMemoryLocker(cfg.LockWaitTimeout), nil
	case config.LockMongo:
		if cfg.Client.Mongo == nil {
			return nil, fmt.Errorf("lock driver %s needs a mongo client", cfg.LockDriver)
		}
		return claim.NewMongoLocker(cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.LockWaitTimeout, cfg.LockTTL), nil
	case config.LockRedis:
		if cfg.Client.Redis == nil {
			return nil, fmt.Errorf("lock driver %s needs a redis client", cfg.LockDriver)
		}
		return claim.NewRedisLocker(cfg.Client.Redis, cfg.RedisKeyPrefix, cfg.LockWaitTimeout, cfg.LockTTL), nil
	default:
		return nil, fmt.Errorf("unknown lock driver %q", cfg.LockDriver)
	}
}

func NewTransactionManager(cfg *config.Config) db.TransactionManager {
	if cfg.StoreDriver == config.StoreMongo {
		return dbmongo.NewTransactionManager(cfg.Client.Mongo)
	}
	return memory.NewTransactionManager()
}

// NewPublisher returns the event publisher and a function that flushes and
// closes it.
func NewPublisher(cfg *config.Config, source string) (events.Publisher, func(), error) {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Event publishing disabled")
		return events.Noop(), func() {}, nil
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	producer.Use(kafka_middleware.MetricsProducerMiddleware(kafka_middleware.NewMetrics(prometheus.DefaultRegisterer)))
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log, producer.Topic()))

	closeFn := func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close kafka producer", "error", err)
		}
	}
	return events.NewKafkaPublisher(producer, source), closeFn, nil
}

// NewCoordinator builds the claim coordinator from the configured drivers.
// The returned function closes the event publisher.
func NewCoordinator(cfg *config.Config, source string) (*claim.Coordinator, func(), error) {
	locker, err := NewLocker(cfg)
	if err != nil {
		return nil, nil, err
	}
	publisher, closePublisher, err := NewPublisher(cfg, source)
	if err != nil {
		return nil, nil, err
	}

	return &claim.Coordinator{
		Locker:  locker,
		Tx:      NewTransactionManager(cfg),
		Events:  publisher,
		Metrics: claim.DefaultMetrics(),
		Log:     cfg.Log,
	}, closePublisher, nil
}
