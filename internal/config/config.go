package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/inkpress/mediaedit/pkg/config"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Remote updater modes.
const (
	RemoteWPCOM = "wpcom"
	RemoteMock  = "mock"
)

// Config holds all configuration for the media edit service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"MEDIAEDIT_HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Editor sessions
	MaxSessions  int           `env:"MAX_SESSIONS" envDefault:"1000"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// Media store
	StoreBackend string        `env:"STORE_BACKEND" envDefault:"postgres"`
	PostgresHost string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string        `env:"POSTGRES_USER" envDefault:"mediaedit"`
	PostgresPass string        `env:"POSTGRES_PASSWORD" envDefault:"mediaedit_secret"`
	PostgresDB   string        `env:"POSTGRES_DB" envDefault:"mediaedit"`
	PostgresSSL  string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	SlowQuery    time.Duration `env:"POSTGRES_SLOW_QUERY" envDefault:"200ms"`
	SeedFile     string        `env:"SEED_FILE" envDefault:""`

	// Redis record cache
	CacheEnabled bool          `env:"CACHE_ENABLED" envDefault:"false"`
	RedisHost    string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort    int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass    string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB      int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"10m"`

	// Remote media API
	RemoteMode      string        `env:"REMOTE_MODE" envDefault:"mock"`
	RemoteBaseURL   string        `env:"REMOTE_BASE_URL" envDefault:"https://public-api.wordpress.com/rest/v1.1"`
	RemoteToken     string        `env:"REMOTE_TOKEN" envDefault:""`
	UpdateTimeout   time.Duration `env:"REMOTE_UPDATE_TIMEOUT" envDefault:"30s"`
	MockDelay       time.Duration `env:"REMOTE_MOCK_DELAY" envDefault:"300ms"`
	BreakerTimeout  time.Duration `env:"REMOTE_BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerRatio    float64       `env:"REMOTE_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinCalls uint32        `env:"REMOTE_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load mediaedit config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StoreBackend {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %s or %s)", c.StoreBackend, StorePostgres, StoreMemory)
	}
	switch c.RemoteMode {
	case RemoteWPCOM:
		if c.RemoteBaseURL == "" {
			return fmt.Errorf("REMOTE_BASE_URL is required in %s mode", RemoteWPCOM)
		}
	case RemoteMock:
	default:
		return fmt.Errorf("unknown REMOTE_MODE %q (want %s or %s)", c.RemoteMode, RemoteWPCOM, RemoteMock)
	}
	if c.UpdateTimeout <= 0 {
		return fmt.Errorf("REMOTE_UPDATE_TIMEOUT must be positive, got %s", c.UpdateTimeout)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	if c.CacheEnabled && c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when the cache is enabled, got %s", c.CacheTTL)
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("MAX_SESSIONS must be at least 1, got %d", c.MaxSessions)
	}
	if c.BreakerRatio <= 0 || c.BreakerRatio > 1 {
		return fmt.Errorf("REMOTE_BREAKER_FAILURE_RATIO must be in (0, 1], got %v", c.BreakerRatio)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}
