package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "turbine_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard service.
type Metrics struct {
	DashboardReady prometheus.Gauge

	// Live stream metrics.
	StreamConnections prometheus.Gauge
	StreamReadings    prometheus.Counter
	StreamFrameErrors prometheus.Counter
	StreamErrors      prometheus.Counter

	// Notification bus metrics.
	NotificationsPublished *prometheus.CounterVec // labels: kind
	NotificationsDropped   prometheus.Counter
	NotificationsDuplicate prometheus.Counter

	// Snapshot metrics.
	SnapshotFetchDuration prometheus.Histogram
	SnapshotPages         prometheus.Counter
	SnapshotRecords       prometheus.Gauge
	OverridesPruned       prometheus.Counter

	// Backend API metrics.
	BackendRequests *prometheus.CounterVec // labels: method, outcome={ok,network,backend_down,client_error}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge

	// Weather metrics.
	WeatherRequests *prometheus.CounterVec // labels: provider, outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DashboardReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ready",
			Help:      "1 once a turbine snapshot is held, 0 otherwise.",
		}),
		StreamConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connections",
			Help:      "Open power-output stream connections.",
		}),
		StreamReadings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_readings_total",
			Help:      "Power readings received from the stream.",
		}),
		StreamFrameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_frame_errors_total",
			Help:      "Stream frames skipped because their payload could not be decoded.",
		}),
		StreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_errors_total",
			Help:      "Stream connections terminated by an error.",
		}),
		NotificationsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_published_total",
			Help:      "Turbine notifications published on the bus by kind.",
		}, []string{"kind"}),
		NotificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notifications not delivered because a subscriber buffer was full.",
		}),
		NotificationsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_duplicate_total",
			Help:      "Notifications suppressed because their event id was already seen.",
		}),
		SnapshotFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_fetch_duration_seconds",
			Help:      "Duration of a complete paged turbine snapshot fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SnapshotPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_pages_total",
			Help:      "Snapshot pages requested from the backend.",
		}),
		SnapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Turbine records held in the current snapshot.",
		}),
		OverridesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overrides_pruned_total",
			Help:      "Override entries cleared because a refetch confirmed them.",
		}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Fleet backend API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when reverse geocoding is configured, 0 otherwise.",
		}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "Weather forecast requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.DashboardReady,
		m.StreamConnections,
		m.StreamReadings,
		m.StreamFrameErrors,
		m.StreamErrors,
		m.NotificationsPublished,
		m.NotificationsDropped,
		m.NotificationsDuplicate,
		m.SnapshotFetchDuration,
		m.SnapshotPages,
		m.SnapshotRecords,
		m.OverridesPruned,
		m.BackendRequests,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.WeatherRequests,
	}
}
