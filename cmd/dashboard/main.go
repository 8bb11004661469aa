package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	httpadapter "github.com/couchcryptid/turbine-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/turbine-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/turbine-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/turbine-dashboard/internal/adapter/openmeteo"
	"github.com/couchcryptid/turbine-dashboard/internal/auth"
	"github.com/couchcryptid/turbine-dashboard/internal/backend"
	"github.com/couchcryptid/turbine-dashboard/internal/config"
	"github.com/couchcryptid/turbine-dashboard/internal/dashboard"
	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/editor"
	"github.com/couchcryptid/turbine-dashboard/internal/notify"
	"github.com/couchcryptid/turbine-dashboard/internal/observability"
	"github.com/couchcryptid/turbine-dashboard/internal/overrides"
	"github.com/couchcryptid/turbine-dashboard/internal/reconcile"
	"github.com/couchcryptid/turbine-dashboard/internal/stream"
	"github.com/couchcryptid/turbine-dashboard/internal/weather"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, logger, metrics)

	// Override store (memory or Redis via OVERRIDE_STORE).
	var store overrides.Store
	var rdb *redis.Client
	switch cfg.OverrideStore {
	case config.OverrideStoreRedis:
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("redis unavailable", "error", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}
		store = overrides.NewRedis(rdb, cfg.RedisKeyPrefix)
		logger.Info("override store: redis", "addr", cfg.RedisAddr)
	default:
		store = overrides.NewMemory()
		logger.Info("override store: memory")
	}

	bus := notify.NewBus(notify.DefaultDedupWindow, logger, metrics)
	dashSub := bus.Subscribe("dashboard", 256)

	// Notifications fan out across instances when Kafka is enabled.
	var publisher notify.Publisher = bus
	var workers []func(context.Context) error
	var closers []func() error
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		reader := kafkaadapter.NewReader(cfg, bus, logger)
		fanout := kafkaadapter.NewFanout(bus, writer, 256, logger)
		publisher = fanout
		workers = append(workers, fanout.Run, reader.Run)
		closers = append(closers, reader.Close, writer.Close)
		logger.Info("kafka notification fan-out enabled", "topic", cfg.KafkaNotifyTopic, "brokers", cfg.KafkaBrokers)
	}

	view := reconcile.NewView(store, cfg.ReadingWindow)
	feed := stream.NewFeed(stream.NewSubscriber(client.StreamURL(), nil, logger, metrics))
	dash := dashboard.New(client, client, feed, view, dashSub.C(), logger, metrics, dashboard.Options{
		PageSize:       cfg.SnapshotPageSize,
		StreamMax:      cfg.StreamMaxTurbines,
		StreamInterval: cfg.StreamInterval,
	})
	workers = append(workers, dash.Run)

	weatherRegistry := weather.NewRegistry(metrics, openmeteo.NewClient(cfg.WeatherTimeout, logger))
	if err := weatherRegistry.SetDefault(cfg.WeatherProvider); err != nil {
		logger.Error("invalid WEATHER_PROVIDER", "error", err)
		os.Exit(1)
	}

	// Reverse geocoding is feature-flagged via MAPBOX_ACCESS_TOKEN.
	var geocoder domain.ReverseGeocoder
	if cfg.MapboxEnabled() {
		mb := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(mb, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Dashboard: dash,
		Editor:    editor.NewService(client, store, publisher, logger),
		Backend:   client,
		Weather:   weatherRegistry,
		Geocoder:  geocoder,
		Overrides: store,
		Verifier:  auth.NewVerifier(cfg.AuthJWTSecret),
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start background loops.
	var wg sync.WaitGroup
	for _, run := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				logger.Error("worker error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	dashSub.Close()
	bus.Close()
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
