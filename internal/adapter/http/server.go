// Package http is the dashboard's HTTP surface: health and metrics, the
// reconciled views, the turbine editor, weather and reverse geocoding, and
// passthrough proxies to the fleet backend.
package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/auth"
	"github.com/couchcryptid/turbine-dashboard/internal/dashboard"
	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/editor"
	"github.com/couchcryptid/turbine-dashboard/internal/reconcile"
	"github.com/couchcryptid/turbine-dashboard/internal/weather"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dashboard is the reconciled view service.
type Dashboard interface {
	CheckReadiness(ctx context.Context) error
	Table(ctx context.Context) ([]domain.TurbineRecord, error)
	Markers(ctx context.Context) ([]reconcile.Marker, error)
	Detail(ctx context.Context, id string) (reconcile.Detail, error)
	Status() dashboard.Status
	Summary(ctx context.Context) (domain.Summary, error)
	Refresh(ctx context.Context) error
}

// Editor saves and deletes turbines.
type Editor interface {
	Save(ctx context.Context, f editor.Form) (editor.Result, error)
	Delete(ctx context.Context, id string) error
}

// Forwarder relays raw requests to the fleet backend.
type Forwarder interface {
	Forward(ctx context.Context, method, pathAndQuery string, h http.Header, body io.Reader) (*http.Response, error)
	OpenStream(ctx context.Context, rawQuery string, h http.Header) (*http.Response, error)
}

// Forecaster serves weather forecasts.
type Forecaster interface {
	Fetch(ctx context.Context, req domain.ForecastRequest, providerID string) (domain.Forecast, error)
	Providers() []weather.Info
}

// OverrideClearer drops a pending local edit.
type OverrideClearer interface {
	Clear(ctx context.Context, id string) error
}

// Deps are the services the HTTP surface exposes. Geocoder may be nil when
// reverse geocoding is not configured.
type Deps struct {
	Dashboard Dashboard
	Editor    Editor
	Backend   Forwarder
	Weather   Forecaster
	Geocoder  domain.ReverseGeocoder
	Overrides OverrideClearer
	Verifier  *auth.Verifier
}

// Server exposes the dashboard API plus /healthz, /readyz and /metrics.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with every dashboard route registered.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	s := &Server{deps: deps, logger: logger}

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.routes(),
		ReadTimeout: 10 * time.Second,
		// Stream proxy responses stay open indefinitely.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", handleReady(s.deps.Dashboard)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(s.deps.Verifier, s.logger))
	api.Use(forwardAuthorization)

	weatherCORS := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	weather := weatherCORS(http.HandlerFunc(s.handleWeather))
	api.Handle("/weather", handlers.MethodHandler{http.MethodGet: weather, http.MethodOptions: weather})
	api.Handle("/weather/providers", getOnly(http.HandlerFunc(s.handleWeatherProviders)))
	api.Handle("/revgeo", getOnly(http.HandlerFunc(s.handleRevGeo)))
	api.Handle("/stream-proxy", getOnly(http.HandlerFunc(s.handleStreamProxy)))

	// Read-only passthroughs.
	api.Handle("/1/workorders", getOnly(s.proxyGET(workOrdersPath)))
	api.Handle("/1/workorders/{id}", getOnly(s.proxyGET(workOrderPath)))
	api.Handle("/1/workorders/{id}/comments", getOnly(s.proxyGET(commentsPath)))
	api.Handle("/1/summary", getOnly(http.HandlerFunc(s.handleSummary)))

	api.Handle("/views/status", getOnly(http.HandlerFunc(s.handleStatus)))
	api.Handle("/views/turbines", getOnly(http.HandlerFunc(s.handleTable)))
	api.Handle("/views/turbines/{id}", getOnly(http.HandlerFunc(s.handleDetail)))
	api.Handle("/views/markers", getOnly(http.HandlerFunc(s.handleMarkers)))
	api.Handle("/views/refresh", handlers.MethodHandler{http.MethodPost: http.HandlerFunc(s.handleRefresh)})

	write := auth.Require(auth.TurbineWriteRoles...)
	update := write(http.HandlerFunc(s.handleUpdateTurbine))
	api.Handle("/1/windturbines", handlers.MethodHandler{
		http.MethodPost: write(http.HandlerFunc(s.handleCreateTurbine)),
	})
	api.Handle("/1/windturbines/{id}", handlers.MethodHandler{
		http.MethodPatch:  update,
		http.MethodPut:    update,
		http.MethodDelete: auth.Require(auth.DeleteRoles...)(http.HandlerFunc(s.handleDeleteTurbine)),
	})
	api.Handle("/overrides/{id}", handlers.MethodHandler{
		http.MethodDelete: auth.Require(auth.EditRoles...)(http.HandlerFunc(s.handleClearOverride)),
	})
	api.Handle("/users/roles", handlers.MethodHandler{
		http.MethodPatch: auth.Require(auth.UserAdminRoles...)(http.HandlerFunc(s.handleRoleUpdate)),
	})

	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Message: "Method not allowed."})
	})
	r.MethodNotAllowedHandler = notAllowed
	api.MethodNotAllowedHandler = notAllowed
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found", Message: "No such route.", Class: domain.ClassNotFound})
	})

	return recoverPanics(s.logger, handlers.CustomLoggingHandler(io.Discard, r, s.accessLog))
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// accessLog routes gorilla's request log lines into slog.
func (s *Server) accessLog(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Debug("http request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"bytes", p.Size,
		"duration", time.Since(p.TimeStamp),
	)
}

// getOnly answers 405 with an Allow header for anything but GET.
func getOnly(h http.Handler) http.Handler {
	return handlers.MethodHandler{http.MethodGet: h}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
