package mapbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

const v6Feature = `{
	"type": "FeatureCollection",
	"attribution": "© 2024 Mapbox",
	"features": [{
		"type": "Feature",
		"properties": {
			"name": "Esbjergvej 12",
			"context": {
				"place": {"name": "Esbjerg"},
				"region": {"name": "Region of Southern Denmark"},
				"country": {"name": "Denmark", "country_code": "dk"}
			}
		}
	}]
}`

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "8.4594", q.Get("longitude"))
		assert.Equal(t, "55.4765", q.Get("latitude"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "da", q.Get("language"))
		assert.Equal(t, "DK", q.Get("country"))
		assert.Empty(t, q.Get("types"))
		assert.Equal(t, testToken, q.Get("access_token"))
		assert.Equal(t, contentTypeJSON, r.Header.Get("Accept"))

		w.Header().Set(headerContentType, contentTypeJSON)
		fmt.Fprint(w, v6Feature)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	place, err := c.ReverseGeocode(context.Background(), domain.ReverseQuery{Lat: 55.4765, Lon: 8.4594, Language: "da", Country: "DK"})
	require.NoError(t, err)

	assert.Equal(t, "Esbjergvej 12, Esbjerg, Region of Southern Denmark, Denmark", place.Label)
	assert.Equal(t, "© 2024 Mapbox", place.Attribution)
	assert.Len(t, place.Features, 1)
	assert.Equal(t, "Feature", place.Feature["type"])
	assert.NotEmpty(t, place.Raw)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("success")))
}

func TestClient_ReverseGeocode_LabelFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		feature string
		want    string
	}{
		{
			name:    "place_formatted preferred",
			feature: `{"properties":{"place_formatted":"Austin, Texas","name":"ignored","context":{"region":{"name":"Texas"}}}}`,
			want:    "Austin, Texas, Texas",
		},
		{
			name:    "text and locality",
			feature: `{"text":"Dock 5","properties":{"context":{"locality":{"name":"Harbour"}}}}`,
			want:    "Dock 5, Harbour",
		},
		{
			name:    "country as string",
			feature: `{"properties":{"context":{"country":"Norway"}}}`,
			want:    "Norway",
		},
		{
			name:    "nothing usable",
			feature: `{"properties":{}}`,
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprintf(w, `{"features":[%s]}`, tt.feature)
			}))
			defer srv.Close()

			place, err := testClient(srv.URL).ReverseGeocode(context.Background(), domain.ReverseQuery{Lat: 1, Lon: 2})
			require.NoError(t, err)
			assert.Equal(t, tt.want, place.Label)
		})
	}
}

func TestClient_ReverseGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		fmt.Fprint(w, `{"features":[]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	place, err := c.ReverseGeocode(context.Background(), domain.ReverseQuery{Lat: 0, Lon: 0})
	require.NoError(t, err)
	assert.Empty(t, place.Label)
	assert.Nil(t, place.Feature)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("empty")))
}

func TestClient_ReverseGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.token = "bad-token"

	_, err := c.ReverseGeocode(context.Background(), domain.ReverseQuery{Lat: 1, Lon: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("error")))
}

func TestClient_ReverseGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.ReverseGeocode(context.Background(), domain.ReverseQuery{Lat: 1, Lon: 1})
	require.Error(t, err)
}
