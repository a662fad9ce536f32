package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.Equal(t, RemoteMock, cfg.RemoteMode)
	assert.Equal(t, "mediaedit", cfg.PostgresDB)
	assert.Equal(t, 30*time.Second, cfg.UpdateTimeout)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.CacheEnabled)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 1000, cfg.MaxSessions)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("REMOTE_MODE", "wpcom")
	t.Setenv("REMOTE_TOKEN", "secret")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, RemoteWPCOM, cfg.RemoteMode)
	assert.Equal(t, "secret", cfg.RemoteToken)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"http port", map[string]string{"MEDIAEDIT_HTTP_PORT": "0"}, "invalid HTTP port"},
		{"store backend", map[string]string{"STORE_BACKEND": "sqlite"}, "unknown STORE_BACKEND"},
		{"remote mode", map[string]string{"REMOTE_MODE": "ftp"}, "unknown REMOTE_MODE"},
		{"update timeout", map[string]string{"REMOTE_UPDATE_TIMEOUT": "0s"}, "REMOTE_UPDATE_TIMEOUT must be positive"},
		{"store timeout", map[string]string{"STORE_TIMEOUT": "-1s"}, "STORE_TIMEOUT must be positive"},
		{"cache ttl", map[string]string{"CACHE_ENABLED": "true", "CACHE_TTL": "0s"}, "CACHE_TTL must be positive"},
		{"sessions", map[string]string{"MAX_SESSIONS": "0"}, "MAX_SESSIONS must be at least 1"},
		{"breaker ratio", map[string]string{"REMOTE_BREAKER_FAILURE_RATIO": "1.5"}, "REMOTE_BREAKER_FAILURE_RATIO"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "2.0"}, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0"},
		{"malformed duration", map[string]string{"CACHE_TTL": "soon"}, "load mediaedit config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_WPCOMRequiresBaseURL(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.RemoteMode = RemoteWPCOM
	cfg.RemoteBaseURL = ""
	assert.ErrorContains(t, cfg.Validate(), "REMOTE_BASE_URL is required")
}
