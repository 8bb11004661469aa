// Package openmeteo is the Open-Meteo daily forecast provider.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
)

const (
	providerID    = "open-meteo"
	providerLabel = "Open-Meteo"
	defaultURL    = "https://api.open-meteo.com/v1/forecast"
)

var dailyFields = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"windspeed_10m_max",
	"winddirection_10m_dominant",
	"precipitation_probability_mean",
	"weathercode",
}

// Client fetches forecasts from the Open-Meteo API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo provider.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    defaultURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) ID() string    { return providerID }
func (c *Client) Label() string { return providerLabel }

// response mirrors the subset of the Open-Meteo payload we read. Array
// elements are pointers because the API sends null for missing values.
type response struct {
	Timezone string `json:"timezone"`
	Daily    *struct {
		Time        []string   `json:"time"`
		TempMax     []*float64 `json:"temperature_2m_max"`
		TempMin     []*float64 `json:"temperature_2m_min"`
		WindMax     []*float64 `json:"windspeed_10m_max"`
		WindDir     []*float64 `json:"winddirection_10m_dominant"`
		PrecipProb  []*float64 `json:"precipitation_probability_mean"`
		WeatherCode []*float64 `json:"weathercode"`
	} `json:"daily"`
}

// Forecast requests req.Days of daily metric values at req.Lat/req.Lon.
func (c *Client) Forecast(ctx context.Context, req domain.ForecastRequest) (domain.Forecast, error) {
	params := url.Values{
		"latitude":         {strconv.FormatFloat(req.Lat, 'f', -1, 64)},
		"longitude":        {strconv.FormatFloat(req.Lon, 'f', -1, 64)},
		"timezone":         {"auto"},
		"forecast_days":    {strconv.Itoa(req.Days)},
		"temperature_unit": {"celsius"},
		"windspeed_unit":   {"ms"},
		"daily":            {strings.Join(dailyFields, ",")},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("create open-meteo request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Forecast{}, fmt.Errorf("open-meteo error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Forecast{}, fmt.Errorf("decode open-meteo response: %w", err)
	}

	now := domain.Clock().Now().UTC()
	return domain.Forecast{
		Source:    providerID,
		FetchedAt: now.Format(time.RFC3339),
		Location:  domain.ForecastLocation{Lat: req.Lat, Lon: req.Lon, Timezone: body.Timezone},
		Days:      days(body, req.Days, now),
	}, nil
}

func days(body response, requested int, now time.Time) []domain.ForecastDay {
	n := requested
	if body.Daily != nil && body.Daily.Time != nil {
		n = len(body.Daily.Time)
	}
	out := make([]domain.ForecastDay, n)
	for i := range out {
		day := domain.ForecastDay{Date: now.Format("2006-01-02")}
		if d := body.Daily; d != nil {
			if i < len(d.Time) {
				day.Date = d.Time[i]
			}
			day.TempMaxC = at(d.TempMax, i)
			day.TempMinC = at(d.TempMin, i)
			day.WindMaxMS = at(d.WindMax, i)
			day.WindDirDeg = at(d.WindDir, i)
			day.PrecipProb = at(d.PrecipProb, i)
			if code := at(d.WeatherCode, i); code != nil {
				v := int(*code)
				day.WeatherCode = &v
			}
		}
		out[i] = day
	}
	return out
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) || values[i] == nil {
		return nil
	}
	v := *values[i]
	return &v
}
