// Package editor saves and deletes turbines and keeps every view in step:
// it writes through the backend, broadcasts the change on the notification
// bus and records the edited fields as an override.
package editor

import (
	"strings"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/backend"
	"github.com/couchcryptid/turbine-dashboard/internal/domain"
)

const dateLayout = "2006-01-02"

// Form is the turbine edit dialog's submission. An empty ID means create.
type Form struct {
	ID                  string  `json:"id,omitempty"`
	Name                string  `json:"name"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	Manufacturer        string  `json:"manufacturer"`
	ManufacturerCountry string  `json:"manufacturerCountry,omitempty"`
	CapacityKW          float64 `json:"capacityKW"`
	Active              bool    `json:"active"`
	BuiltDate           string  `json:"builtDate,omitempty"`
	InstallationDate    string  `json:"installationDate,omitempty"`
}

// Creating reports whether the form describes a new turbine.
func (f Form) Creating() bool {
	return strings.TrimSpace(f.ID) == ""
}

// Validate checks every field and returns domain.ValidationErrors listing all
// failures, or nil.
func (f Form) Validate() error {
	var errs domain.ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, domain.FieldError{Field: field, Message: msg})
	}

	if strings.TrimSpace(f.Name) == "" {
		add("name", "name is required")
	}
	if strings.TrimSpace(f.Manufacturer) == "" {
		add("manufacturer", "manufacturer is required")
	}
	if f.Latitude < -90 || f.Latitude > 90 {
		add("latitude", "latitude must be between -90 and 90")
	}
	if f.Longitude < -180 || f.Longitude > 180 {
		add("longitude", "longitude must be between -180 and 180")
	}
	if f.CapacityKW <= 0 {
		add("capacityKW", "capacity must be greater than zero")
	}

	built, builtOK := parseDate(f.BuiltDate)
	if f.BuiltDate != "" && !builtOK {
		add("builtDate", "built date must be YYYY-MM-DD")
	}
	installed, installedOK := parseDate(f.InstallationDate)
	if f.InstallationDate != "" && !installedOK {
		add("installationDate", "installation date must be YYYY-MM-DD")
	}
	if builtOK && installedOK && installed.Before(built) {
		add("installationDate", "installation date cannot be before built date")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	return t, err == nil
}

// Input builds the backend write payload.
func (f Form) Input() backend.TurbineInput {
	return backend.TurbineInput{
		Name:            f.Name,
		Latitude:        f.Latitude,
		Longitude:       f.Longitude,
		Active:          f.Active,
		RatedCapacityKW: f.CapacityKW,
		Manufacturer: domain.Manufacturer{
			Name:    f.Manufacturer,
			Country: f.ManufacturerCountry,
		},
		BuiltDate:        f.BuiltDate,
		InstallationDate: f.InstallationDate,
	}
}

// Payload builds the notification payload for turbine id.
func (f Form) Payload(id string) domain.TurbinePayload {
	return domain.TurbinePayload{
		ID:           id,
		Name:         f.Name,
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
		Manufacturer: f.Manufacturer,
		CapacityKW:   f.CapacityKW,
		Active:       f.Active,
	}
}
