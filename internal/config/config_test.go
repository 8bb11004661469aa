package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMapboxToken = "pk.test-token"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:3000", cfg.BackendURL)
	assert.Equal(t, 15*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 500, cfg.SnapshotPageSize)
	assert.Equal(t, 50, cfg.StreamMaxTurbines)
	assert.Equal(t, 5, cfg.StreamInterval)
	assert.Equal(t, 60, cfg.ReadingWindow)
	assert.Equal(t, OverrideStoreMemory, cfg.OverrideStore)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "turbine-notifications", cfg.KafkaNotifyTopic)
	assert.False(t, cfg.MapboxEnabled())
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
	assert.Equal(t, "open-meteo", cfg.WeatherProvider)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BACKEND_URL", "http://fleet-api:3000/")
	t.Setenv("BACKEND_TIMEOUT", "0s")
	t.Setenv("SNAPSHOT_PAGE_SIZE", "100")
	t.Setenv("STREAM_MAX_TURBINES", "20")
	t.Setenv("STREAM_INTERVAL", "2")
	t.Setenv("READING_WINDOW", "30")
	t.Setenv("OVERRIDE_STORE", "redis")
	t.Setenv("REDIS_ADDR", "valkey:6379")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_NOTIFY_TOPIC", "custom-notify")
	t.Setenv("MAPBOX_ACCESS_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://fleet-api:3000", cfg.BackendURL)
	assert.Equal(t, time.Duration(0), cfg.BackendTimeout)
	assert.Equal(t, 100, cfg.SnapshotPageSize)
	assert.Equal(t, 20, cfg.StreamMaxTurbines)
	assert.Equal(t, 2, cfg.StreamInterval)
	assert.Equal(t, 30, cfg.ReadingWindow)
	assert.Equal(t, OverrideStoreRedis, cfg.OverrideStore)
	assert.Equal(t, "valkey:6379", cfg.RedisAddr)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-notify", cfg.KafkaNotifyTopic)
	assert.True(t, cfg.MapboxEnabled())
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
	assert.True(t, cfg.AuthEnabled())
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBackendTimeout(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_TIMEOUT")
}

func TestLoad_InvalidMapboxTimeout(t *testing.T) {
	t.Setenv("MAPBOX_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TIMEOUT")
}

func TestLoad_ZeroMapboxTimeout(t *testing.T) {
	t.Setenv("MAPBOX_TIMEOUT", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TIMEOUT")
}

func TestLoad_InvalidPageSize(t *testing.T) {
	t.Setenv("SNAPSHOT_PAGE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SNAPSHOT_PAGE_SIZE")
}

func TestLoad_InvalidReadingWindow(t *testing.T) {
	t.Setenv("READING_WINDOW", "many")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READING_WINDOW")
}

func TestLoad_UnknownOverrideStore(t *testing.T) {
	t.Setenv("OVERRIDE_STORE", "etcd")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OVERRIDE_STORE")
}

func TestLoad_InvalidMapboxCacheSizeFallsBack(t *testing.T) {
	t.Setenv("MAPBOX_CACHE_SIZE", "-3")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}
