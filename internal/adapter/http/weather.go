package http

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/weather"
)

const edgeCache = "public, s-maxage=300, stale-while-revalidate=600"

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, ok := coordinates(q)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "lat and lon query params are required numbers", Class: domain.ClassValidation})
		return
	}

	req := domain.ForecastRequest{Lat: lat, Lon: lon, Days: weather.ParseDays(q.Get("days"))}
	forecast, err := s.deps.Weather.Fetch(r.Context(), req, q.Get("provider"))
	if err != nil {
		s.logger.Warn("weather fetch failed", "error", err, "provider", q.Get("provider"))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error(), Class: domain.Classify(err)})
		return
	}

	w.Header().Set("Cache-Control", edgeCache)
	writeJSON(w, http.StatusOK, forecast)
}

func (s *Server) handleWeatherProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Weather.Providers())
}

func (s *Server) handleRevGeo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, ok := coordinates(q)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "lat and lon required", Class: domain.ClassValidation})
		return
	}

	// Every failure past validation is an unknown place, never an error.
	if s.deps.Geocoder == nil {
		writeJSON(w, http.StatusOK, domain.Place{})
		return
	}

	query := domain.ReverseQuery{
		Lat:       lat,
		Lon:       lon,
		Language:  language(q, r.Header.Get("Accept-Language")),
		Country:   q.Get("country"),
		Types:     q.Get("types"),
		Proximity: q.Get("proximity"),
	}
	place, err := s.deps.Geocoder.ReverseGeocode(r.Context(), query)
	if err != nil {
		s.logger.Debug("reverse geocode failed", "error", err, "lat", lat, "lon", lon)
		writeJSON(w, http.StatusOK, domain.Place{})
		return
	}

	w.Header().Set("Cache-Control", edgeCache)
	if raw := q.Get("raw"); (raw == "1" || raw == "true") && len(place.Raw) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(place.Raw)
		return
	}
	writeJSON(w, http.StatusOK, place)
}

func coordinates(q url.Values) (lat, lon float64, ok bool) {
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil || !finite(lat) || !finite(lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// language prefers the explicit query value, then the first Accept-Language
// tag, then "en".
func language(q url.Values, acceptLanguage string) string {
	if l := q.Get("language"); l != "" {
		return l
	}
	first, _, _ := strings.Cut(acceptLanguage, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return "en"
}
