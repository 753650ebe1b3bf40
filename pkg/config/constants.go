package config

import "time"

const (
	// ServiceName is also the environment variable prefix (STOREFRONT_).
	ServiceName = "storefront"

	DefaultHTTPPort        = 8080
	DefaultPostgresPort    = 5432
	DefaultRedisAddr       = "localhost:6379"
	DefaultShutdownTimeout = 15 * time.Second

	// Connection pool defaults.
	DefaultMaxConnections  = 25
	DefaultMinConnections  = 5
	DefaultMaxConnIdleTime = 30 * time.Minute
	DefaultPoolSize        = 10
	DefaultDialTimeout     = 5 * time.Second

	// Transactions retry with exponential backoff starting at the base delay.
	DefaultTxAttempts  = 3
	DefaultTxBaseDelay = 25 * time.Millisecond

	DefaultBreakerFailures = 5
	DefaultBreakerTimeout  = 30 * time.Second
	DefaultLoadTimeout     = 10 * time.Second

	DefaultViewSize = 20

	DefaultAccessTokenDuration = 24 * time.Hour
	DefaultUploadMaxSizeMB     = 512
	DefaultNATSReconnectWait   = 2 * time.Second
)
