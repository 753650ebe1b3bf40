package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trexinity/another/pkg/logger"
)

// StorefrontConfig is the full configuration of the storefront service.
type StorefrontConfig struct {
	Service      ServiceConfig     `koanf:"service"`
	Store        StoreConfig       `koanf:"store"`
	Logger       logger.Config     `koanf:"logger"`
	Metrics      MetricsConfig     `koanf:"metrics"`
	Auth         AuthConfig        `koanf:"auth"`
	Transactions TransactionConfig `koanf:"transactions"`
	Catalog      CatalogConfig     `koanf:"catalog"`
	Watchlist    WatchlistConfig   `koanf:"watchlist"`
	Uploads      UploadConfig      `koanf:"uploads"`
	NATS         NATSConfig        `koanf:"nats"`
	Views        ViewsConfig       `koanf:"views"`
}

// ServiceConfig contains service-specific metadata.
type ServiceConfig struct {
	Name            string        `koanf:"name"`
	Version         string        `koanf:"version"`
	Environment     string        `koanf:"environment"` // dev, staging, production
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend  string         `koanf:"backend"` // gorm or redis
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // postgres or sqlite
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Database        string        `koanf:"database"`
	SSLMode         string        `koanf:"ssl_mode"`
	SQLitePath      string        `koanf:"sqlite_path"`
	MaxConnections  int           `koanf:"max_connections"`
	MinConnections  int           `koanf:"min_connections"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
	Debug           bool          `koanf:"debug"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr        string        `koanf:"addr"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db"`
	PoolSize    int           `koanf:"pool_size"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
	KeyPrefix   string        `koanf:"key_prefix"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// AuthConfig configures bearer token verification and the admin allow-list.
type AuthConfig struct {
	JWTSecret           string        `koanf:"jwt_secret"`
	Issuer              string        `koanf:"issuer"`
	AccessTokenDuration time.Duration `koanf:"access_token_duration"`
	AdminEmails         []string      `koanf:"admin_emails"`
	CasbinModelPath     string        `koanf:"casbin_model_path"`
	CasbinPolicyPath    string        `koanf:"casbin_policy_path"`
}

// TransactionConfig bounds optimistic transaction retries.
type TransactionConfig struct {
	MaxAttempts uint          `koanf:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay"`
}

// CatalogConfig configures catalog loading.
type CatalogConfig struct {
	LoadTimeout        time.Duration `koanf:"load_timeout"`
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// WatchlistConfig selects where watchlists persist.
type WatchlistConfig struct {
	Backend    string `koanf:"backend"` // local or remote
	BadgerPath string `koanf:"badger_path"`
}

// UploadConfig selects the media uploader.
type UploadConfig struct {
	Backend   string    `koanf:"backend"` // s3 or local
	MaxSizeMB int       `koanf:"max_size_mb"`
	S3        S3Config  `koanf:"s3"`
	Local     LocalDirs `koanf:"local"`
}

// S3Config configures the S3 uploader.
type S3Config struct {
	Bucket        string `koanf:"bucket"`
	Region        string `koanf:"region"`
	Prefix        string `koanf:"prefix"`
	PublicBaseURL string `koanf:"public_base_url"`
}

// LocalDirs configures the filesystem uploader.
type LocalDirs struct {
	Path          string `koanf:"path"`
	PublicBaseURL string `koanf:"public_base_url"`
}

// NATSConfig configures the event forwarder.
type NATSConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	ClientID      string        `koanf:"client_id"`
	Stream        string        `koanf:"stream"`
	MaxReconnect  int           `koanf:"max_reconnect"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// ViewsConfig sizes the home page rows.
type ViewsConfig struct {
	TrendingSize int `koanf:"trending_size"`
	RecentSize   int `koanf:"recent_size"`
	PopularSize  int `koanf:"popular_size"`
}

// Defaults returns default configuration values.
func Defaults() *StorefrontConfig {
	return &StorefrontConfig{
		Service: ServiceConfig{
			Name:            ServiceName,
			Environment:     "dev",
			Port:            DefaultHTTPPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Store: StoreConfig{
			Backend: "gorm",
			Database: DatabaseConfig{
				Driver:          "postgres",
				Host:            "localhost",
				Port:            DefaultPostgresPort,
				User:            "storefront",
				Password:        "storefront_dev",
				Database:        "storefront",
				SSLMode:         "disable",
				SQLitePath:      "storefront.db",
				MaxConnections:  DefaultMaxConnections,
				MinConnections:  DefaultMinConnections,
				MaxConnLifetime: time.Hour,
				MaxConnIdleTime: DefaultMaxConnIdleTime,
			},
			Redis: RedisConfig{
				Addr:        DefaultRedisAddr,
				PoolSize:    DefaultPoolSize,
				DialTimeout: DefaultDialTimeout,
			},
		},
		Logger: *logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Auth: AuthConfig{
			Issuer:              ServiceName,
			AccessTokenDuration: DefaultAccessTokenDuration,
		},
		Transactions: TransactionConfig{
			MaxAttempts: DefaultTxAttempts,
			BaseDelay:   DefaultTxBaseDelay,
		},
		Catalog: CatalogConfig{
			LoadTimeout:        DefaultLoadTimeout,
			BreakerMaxFailures: DefaultBreakerFailures,
			BreakerTimeout:     DefaultBreakerTimeout,
		},
		Watchlist: WatchlistConfig{
			Backend:    "remote",
			BadgerPath: "data/watchlist",
		},
		Uploads: UploadConfig{
			Backend:   "local",
			MaxSizeMB: DefaultUploadMaxSizeMB,
			Local: LocalDirs{
				Path:          "data/uploads",
				PublicBaseURL: "/uploads",
			},
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			ClientID:      ServiceName,
			Stream:        "STOREFRONT_EVENTS",
			MaxReconnect:  -1,
			ReconnectWait: DefaultNATSReconnectWait,
		},
		Views: ViewsConfig{
			TrendingSize: DefaultViewSize,
			RecentSize:   DefaultViewSize,
			PopularSize:  DefaultViewSize,
		},
	}
}

// Validate checks the configuration and normalizes list values that
// arrive from the environment as a single comma separated string.
func (c *StorefrontConfig) Validate() error {
	c.Auth.AdminEmails = splitList(c.Auth.AdminEmails)

	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid service port: %d", c.Service.Port)
	}

	switch c.Store.Backend {
	case "gorm":
		switch c.Store.Database.Driver {
		case "postgres":
			if c.Store.Database.Host == "" {
				return errors.New("database host is required")
			}
		case "sqlite":
			if c.Store.Database.SQLitePath == "" {
				return errors.New("sqlite path is required")
			}
		default:
			return fmt.Errorf("unsupported database driver: %q", c.Store.Database.Driver)
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return errors.New("redis addr is required")
		}
	default:
		return fmt.Errorf("unsupported store backend: %q", c.Store.Backend)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT secret is required (set via STOREFRONT_AUTH__JWT_SECRET env var or config)")
	}
	if c.Transactions.MaxAttempts < 1 {
		return errors.New("transactions.max_attempts must be at least 1")
	}

	switch c.Watchlist.Backend {
	case "remote":
	case "local":
		if c.Watchlist.BadgerPath == "" {
			return errors.New("watchlist.badger_path is required for the local backend")
		}
	default:
		return fmt.Errorf("unsupported watchlist backend: %q", c.Watchlist.Backend)
	}

	switch c.Uploads.Backend {
	case "s3":
		if c.Uploads.S3.Bucket == "" {
			return errors.New("uploads.s3.bucket is required for the s3 backend")
		}
	case "local":
		if c.Uploads.Local.Path == "" {
			return errors.New("uploads.local.path is required for the local backend")
		}
	default:
		return fmt.Errorf("unsupported upload backend: %q", c.Uploads.Backend)
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	return nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
