package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"
	DefaultTopic        = "travel.claims"
	DefaultDLQTopic     = "travel.claims.dlq"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
)
