// Package config provides configuration structures and validation for the
// ledger services. Values are layered: defaults, then a .env file, then the
// process environment.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Idempotency IdempotencyConfig
	Transfer    TransferConfig
	Admin       AdminConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	SubmissionTopic   string // funding requests submitted by upstream services
	NotificationTopic string // funding events for the notifier
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
	AuditCollection string
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig sizes the pool used for bulk approvals and outbox publishing
type WorkerPoolConfig struct {
	Size int
}

// IdempotencyConfig controls the request deduplication guard
type IdempotencyConfig struct {
	Backend string // "mongo" or "memory"
	// TTL keeps completed responses; InProgressLease bounds an uncompleted reservation
	TTL             time.Duration
	InProgressLease time.Duration
	MinKeyLength    int
	MaxKeyLength    int
	Collection      string
}

// TransferConfig controls calls to the external transfer gateway
type TransferConfig struct {
	GatewayURL      string // empty disables automatic transfers
	Timeout         time.Duration
	ClaimLease      time.Duration
	FinalizeRetries int
}

// AdminConfig holds the credentials accepted for elevated callers
type AdminConfig struct {
	SecretHash string // bcrypt hash of the X-Admin-Secret value
	JWTSecret  string // HMAC key for admin bearer tokens
}

const (
	IdempotencyBackendMongo  = "mongo"
	IdempotencyBackendMemory = "memory"
)

// validate performs validation of all configuration values
func (c *Config) validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.SubmissionTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_SUBMISSION_TOPIC is required")
	}
	if c.Kafka.NotificationTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_NOTIFICATION_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}
	if c.MongoDB.AuditCollection == "" {
		validationErrors = append(validationErrors, "MONGO_AUDIT_COLLECTION is required")
	}

	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	switch c.Idempotency.Backend {
	case IdempotencyBackendMongo, IdempotencyBackendMemory:
	default:
		validationErrors = append(validationErrors, "IDEMPOTENCY_BACKEND must be mongo or memory")
	}
	if c.Idempotency.TTL <= 0 {
		validationErrors = append(validationErrors, "IDEMPOTENCY_TTL must be greater than 0")
	}
	if c.Idempotency.InProgressLease <= 0 || c.Idempotency.InProgressLease > c.Idempotency.TTL {
		validationErrors = append(validationErrors, "IDEMPOTENCY_IN_PROGRESS_LEASE must be positive and not above IDEMPOTENCY_TTL")
	}
	if c.Idempotency.MinKeyLength <= 0 || c.Idempotency.MaxKeyLength < c.Idempotency.MinKeyLength {
		validationErrors = append(validationErrors, "IDEMPOTENCY_MIN_KEY_LENGTH must be positive and not above IDEMPOTENCY_MAX_KEY_LENGTH")
	}
	if c.Idempotency.Collection == "" {
		validationErrors = append(validationErrors, "IDEMPOTENCY_COLLECTION is required")
	}

	if c.Transfer.Timeout <= 0 {
		validationErrors = append(validationErrors, "TRANSFER_TIMEOUT must be greater than 0")
	}
	if c.Transfer.ClaimLease <= c.Transfer.Timeout {
		validationErrors = append(validationErrors, "TRANSFER_CLAIM_LEASE must be greater than TRANSFER_TIMEOUT")
	}
	if c.Transfer.FinalizeRetries <= 0 {
		validationErrors = append(validationErrors, "TRANSFER_FINALIZE_RETRIES must be greater than 0")
	}

	if c.Admin.SecretHash == "" && c.Admin.JWTSecret == "" {
		validationErrors = append(validationErrors, "one of ADMIN_SECRET_HASH or ADMIN_JWT_SECRET is required")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
