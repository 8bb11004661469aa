package domain

import "context"

// ReverseQuery is a coordinate plus optional Mapbox tuning parameters.
type ReverseQuery struct {
	Lat       float64
	Lon       float64
	Language  string
	Country   string // ISO2, comma-separated
	Types     string // comma-separated place types
	Proximity string // "lon,lat"
}

// Place is a best-effort reverse geocoding result. Label is empty when the
// provider knows nothing about the coordinate.
type Place struct {
	Label       string         `json:"place,omitempty"`
	Feature     map[string]any `json:"feature,omitempty"`
	Features    []any          `json:"features,omitempty"`
	Attribution string         `json:"attribution,omitempty"`
	Raw         []byte         `json:"-"`
}

// ReverseGeocoder turns coordinates into a place label.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, q ReverseQuery) (Place, error)
}
