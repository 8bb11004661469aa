// Package weather resolves daily forecasts through pluggable providers.
package weather

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/observability"
)

// Forecast length bounds, in days.
const (
	DefaultDays = 3
	MinDays     = 1
	MaxDays     = 7
)

// DefaultProvider is used when a request names none.
const DefaultProvider = "open-meteo"

// Provider fetches a normalized forecast.
type Provider interface {
	ID() string
	Label() string
	Forecast(ctx context.Context, req domain.ForecastRequest) (domain.Forecast, error)
}

// Info describes a registered provider.
type Info struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Registry maps provider ids to providers.
type Registry struct {
	metrics *observability.Metrics

	mu        sync.RWMutex
	providers map[string]Provider
	fallback  string
}

// NewRegistry creates a registry holding providers.
func NewRegistry(metrics *observability.Metrics, providers ...Provider) *Registry {
	r := &Registry{metrics: metrics, providers: make(map[string]Provider), fallback: DefaultProvider}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing any provider with the same id.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// SetDefault selects the provider used when a request names none. It must
// already be registered.
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownProvider, id)
	}
	r.fallback = id
	return nil
}

// Get returns the provider registered as id. An empty id selects the
// default, DefaultProvider unless SetDefault changed it.
func (r *Registry) Get(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == "" {
		id = r.fallback
	}
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, id)
	}
	return p, nil
}

// Providers lists registered providers sorted by id.
func (r *Registry) Providers() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, Info{ID: p.ID(), Label: p.Label()})
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Fetch resolves providerID and asks it for a forecast. req.Days is clamped.
func (r *Registry) Fetch(ctx context.Context, req domain.ForecastRequest, providerID string) (domain.Forecast, error) {
	p, err := r.Get(providerID)
	if err != nil {
		return domain.Forecast{}, err
	}
	req.Days = ClampDays(req.Days)

	fc, err := p.Forecast(ctx, req)
	if err != nil {
		r.metrics.WeatherRequests.WithLabelValues(p.ID(), "error").Inc()
		return domain.Forecast{}, err
	}
	r.metrics.WeatherRequests.WithLabelValues(p.ID(), "success").Inc()
	return fc, nil
}

// ClampDays bounds n to [MinDays, MaxDays].
func ClampDays(n int) int {
	return min(MaxDays, max(MinDays, n))
}

// ParseDays reads a days query value. Empty or non-numeric values give
// DefaultDays; numbers are clamped.
func ParseDays(s string) int {
	if s == "" {
		return DefaultDays
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return DefaultDays
	}
	return ClampDays(int(n))
}
