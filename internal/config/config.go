package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Override store backends accepted by OVERRIDE_STORE.
const (
	OverrideStoreMemory = "memory"
	OverrideStoreRedis  = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Fleet backend API.
	BackendURL     string
	BackendTimeout time.Duration // 0 disables the per-request timeout

	// Reconciliation tuning.
	SnapshotPageSize  int
	StreamMaxTurbines int
	StreamInterval    int // seconds, passed to the stream endpoint as a hint
	ReadingWindow     int

	// Override store.
	OverrideStore  string
	RedisAddr      string
	RedisKeyPrefix string

	// Kafka notification fan-out.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaNotifyTopic string
	KafkaGroupID     string

	// Mapbox reverse geocoding configuration.
	MapboxToken     string
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Weather forecasts.
	WeatherProvider string
	WeatherTimeout  time.Duration

	// AuthJWTSecret signs bearer tokens. Empty disables authentication.
	AuthJWTSecret string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	backendTimeout, err := parseDuration("BACKEND_TIMEOUT", "15s", true)
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parseDuration("WEATHER_TIMEOUT", "10s", false)
	if err != nil {
		return nil, err
	}

	pageSize, err := parsePositiveInt("SNAPSHOT_PAGE_SIZE", 500)
	if err != nil {
		return nil, err
	}
	streamMax, err := parsePositiveInt("STREAM_MAX_TURBINES", 50)
	if err != nil {
		return nil, err
	}
	streamInterval, err := parsePositiveInt("STREAM_INTERVAL", 5)
	if err != nil {
		return nil, err
	}
	window, err := parsePositiveInt("READING_WINDOW", 60)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		BackendURL:     strings.TrimRight(sharedcfg.EnvOrDefault("BACKEND_URL", "http://localhost:3000"), "/"),
		BackendTimeout: backendTimeout,

		SnapshotPageSize:  pageSize,
		StreamMaxTurbines: streamMax,
		StreamInterval:    streamInterval,
		ReadingWindow:     window,

		OverrideStore:  sharedcfg.EnvOrDefault("OVERRIDE_STORE", OverrideStoreMemory),
		RedisAddr:      sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisKeyPrefix: sharedcfg.EnvOrDefault("REDIS_KEY_PREFIX", "turbine:override:"),

		KafkaEnabled:     kafkaEnabled,
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaNotifyTopic: sharedcfg.EnvOrDefault("KAFKA_NOTIFY_TOPIC", "turbine-notifications"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "turbine-dashboard"),

		MapboxToken:     os.Getenv("MAPBOX_ACCESS_TOKEN"),
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		WeatherProvider: sharedcfg.EnvOrDefault("WEATHER_PROVIDER", "open-meteo"),
		WeatherTimeout:  weatherTimeout,

		AuthJWTSecret: os.Getenv("AUTH_JWT_SECRET"),
	}

	if cfg.BackendURL == "" {
		return nil, errors.New("BACKEND_URL is required")
	}
	switch cfg.OverrideStore {
	case OverrideStoreMemory, OverrideStoreRedis:
	default:
		return nil, fmt.Errorf("invalid OVERRIDE_STORE %q", cfg.OverrideStore)
	}
	if cfg.OverrideStore == OverrideStoreRedis && cfg.RedisAddr == "" {
		return nil, errors.New("OVERRIDE_STORE is redis but REDIS_ADDR is not set")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaNotifyTopic == "" {
			return nil, errors.New("KAFKA_NOTIFY_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

// MapboxEnabled reports whether reverse geocoding has a token to work with.
func (c *Config) MapboxEnabled() bool {
	return c.MapboxToken != ""
}

// AuthEnabled reports whether bearer tokens are verified.
func (c *Config) AuthEnabled() bool {
	return c.AuthJWTSecret != ""
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
