package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"thistle-api"`
	Port                          int      `env:"PORT" env-default:"3000"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	TLSMinVersion                 string   `env:"HTTP_SERVER_TLS_MIN_VERSION" env-default:"TLS_1_2"`
	TLSMaxVersion                 string   `env:"HTTP_SERVER_TLS_MAX_VERSION" env-default:"TLS_1_2"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Database driver
	DatabaseDriver string `env:"DB_DRIVER" env-default:"postgres"`
	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:""`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:""`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"thistle"`
	// Database SQQL Mode
	DatabaseSSLMode string `env:"DB_SQL_MODE" env-default:"disable"`
	// Reconnect Retry Count
	DatabaseReconnectRetryCount int `env:"DB_RECONNECT_RETRY_COUNT" env-default:"3"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	// Database Migration Version
	DatabaseMigrationVersion int `env:"DB_MIGRATION_VERSION" env-default:"0"`
	// Database Migration Force
	DatabaseMigrationForce int `env:"DB_MIGRATION_FORCE" env-default:"0"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis host
	RedisHost string `env:"REDIS_HOST" env-default:"localhost"`
	// Redis port
	RedisPort int `env:"REDIS_PORT" env-default:"6379"`
	// Redis password
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	// Redis database number
	RedisDB int `env:"REDIS_DB" env-default:"0"`

	// Kafka brokers (comma-separated)
	KafkaBrokers string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	// Kafka topic for next-fight notifications
	KafkaNextUpTopic string `env:"KAFKA_NEXT_UP_TOPIC" env-default:"fight-next-up"`

	// Trust tier settings
	// Source families whose data publishes directly (comma-separated)
	TrustProductionFamilies []string `env:"TRUST_PRODUCTION_FAMILIES" env-default:"ufcstats"`
	// Source families mirrored into the shadow columns only (comma-separated)
	TrustShadowFamilies []string `env:"TRUST_SHADOW_FAMILIES" env-default:"sherdog"`

	// Snapshot fetch settings
	// Per-request timeout for snapshot fetches
	SnapshotFetchTimeout time.Duration `env:"SNAPSHOT_FETCH_TIMEOUT" env-default:"15s"`
	// Retry count for failed snapshot fetches
	SnapshotFetchRetries int `env:"SNAPSHOT_FETCH_RETRIES" env-default:"2"`

	// Scheduler settings
	// Lead time before an event's first section start
	SchedulerPreEventLead time.Duration `env:"SCHEDULER_PRE_EVENT_LEAD" env-default:"15m"`
	// Forward window scanned by ScheduleAll
	SchedulerForwardWindow time.Duration `env:"SCHEDULER_FORWARD_WINDOW" env-default:"168h"`
	// Look-back window for events that should already be tracking
	SchedulerLookBack time.Duration `env:"SCHEDULER_LOOK_BACK" env-default:"6h"`
	// Interval between safety check sweeps
	SchedulerSafetyInterval time.Duration `env:"SCHEDULER_SAFETY_INTERVAL" env-default:"15m"`
	// Enable/disable the scheduler
	SchedulerEnabled bool `env:"SCHEDULER_ENABLED" env-default:"true"`

	// Lifecycle settings
	// Interval between lifecycle ticks
	LifecycleInterval time.Duration `env:"LIFECYCLE_INTERVAL" env-default:"5m"`
	// Enable/disable the lifecycle driver
	LifecycleEnabled bool `env:"LIFECYCLE_ENABLED" env-default:"true"`

	// Notification settings
	// Cooldown between next-fight notifications for the same fight
	NotificationCooldown time.Duration `env:"NOTIFICATION_COOLDOWN" env-default:"30m"`

	// Tracing settings
	// Enable OTLP tracing export (set to true to send traces to collector)
	OTLPEnabled bool `env:"OTLP_ENABLED" env-default:"false"`
	// OTLP collector endpoint
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	// OTLP protocol (grpc or http)
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `env:"OTLP_INSECURE" env-default:"true"`
}
