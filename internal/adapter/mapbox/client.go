package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/observability"
)

const reverseURL = "https://api.mapbox.com/search/geocode/v6/reverse"

// Client implements domain.ReverseGeocoder using the Mapbox Search v6 API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox reverse geocoding client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: reverseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// ReverseGeocode resolves a coordinate to a place label. A coordinate Mapbox
// knows nothing about yields an empty Place and no error.
func (c *Client) ReverseGeocode(ctx context.Context, q domain.ReverseQuery) (domain.Place, error) {
	params := url.Values{
		"longitude": {strconv.FormatFloat(q.Lon, 'f', -1, 64)},
		"latitude":  {strconv.FormatFloat(q.Lat, 'f', -1, 64)},
		"limit":     {"1"},
	}
	setIf(params, "language", q.Language)
	setIf(params, "country", q.Country)
	setIf(params, "types", q.Types)
	setIf(params, "proximity", q.Proximity)
	params.Set("access_token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Place{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Place{}, fmt.Errorf("mapbox revgeo %d: %s", resp.StatusCode, body)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Place{}, fmt.Errorf("read response: %w", err)
	}
	var body response
	if err := json.Unmarshal(raw, &body); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Place{}, fmt.Errorf("decode response: %w", err)
	}

	place := domain.Place{
		Features:    body.Features,
		Attribution: body.Attribution,
		Raw:         raw,
	}
	if len(body.Features) > 0 {
		if f, ok := body.Features[0].(map[string]any); ok {
			place.Feature = f
			place.Label = label(f)
		}
	}

	if place.Label == "" {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	} else {
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return place, nil
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

// Mapbox API response types. Features stay untyped so they can be passed
// through to callers unchanged.

type response struct {
	Features    []any  `json:"features"`
	Attribution string `json:"attribution"`
}

// label joins name, place, region and country, skipping empty parts. v6
// features carry these under properties and properties.context; country may
// be an object or a bare string.
func label(f map[string]any) string {
	props, _ := f["properties"].(map[string]any)
	ctx, _ := props["context"].(map[string]any)

	parts := []string{
		firstNonEmpty(str(props["place_formatted"]), str(props["name"]), str(f["text"])),
		firstNonEmpty(nestedName(ctx, "place"), nestedName(ctx, "locality")),
		nestedName(ctx, "region"),
		firstNonEmpty(nestedName(ctx, "country"), str(ctx["country"])),
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func nestedName(ctx map[string]any, key string) string {
	m, _ := ctx[key].(map[string]any)
	return str(m["name"])
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
