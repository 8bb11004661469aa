package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// NotificationKind names a cross-view turbine event.
type NotificationKind string

const (
	TurbineCreated NotificationKind = "turbine:created"
	TurbineUpdated NotificationKind = "turbine:updated"
	TurbineDeleted NotificationKind = "turbine:deleted"
)

// Valid reports whether k is one of the known kinds.
func (k NotificationKind) Valid() bool {
	switch k {
	case TurbineCreated, TurbineUpdated, TurbineDeleted:
		return true
	}
	return false
}

// TurbinePayload carries the editable turbine fields. Deletions only set ID.
type TurbinePayload struct {
	ID           string  `json:"id"`
	Name         string  `json:"name,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	Manufacturer string  `json:"manufacturer,omitempty"`
	CapacityKW   float64 `json:"capacityKW,omitempty"`
	Active       bool    `json:"active,omitempty"`
}

// Record converts the payload into a view record.
func (p TurbinePayload) Record() TurbineRecord {
	return TurbineRecord{
		ID:           p.ID,
		Name:         p.Name,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		Manufacturer: p.Manufacturer,
		CapacityKW:   p.CapacityKW,
		Active:       p.Active,
	}
}

// Notification is an ephemeral create/update/delete broadcast. EventID makes
// repeated delivery of the same occurrence detectable.
type Notification struct {
	EventID string           `json:"eventId"`
	Kind    NotificationKind `json:"kind"`
	Turbine TurbinePayload   `json:"turbine"`
}

// NewNotification stamps a fresh event id onto a notification.
func NewNotification(kind NotificationKind, p TurbinePayload) Notification {
	return Notification{EventID: uuid.NewString(), Kind: kind, Turbine: p}
}

// Validate checks the kind and that the payload names a turbine.
func (n Notification) Validate() error {
	if !n.Kind.Valid() {
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	if n.Turbine.ID == "" {
		return fmt.Errorf("%s notification without turbine id", n.Kind)
	}
	return nil
}
