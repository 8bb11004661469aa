package domain

import "time"

// Manufacturer identifies who built a turbine.
type Manufacturer struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// Turbine is the backend's full representation of a wind turbine.
type Turbine struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Latitude         float64      `json:"latitude"`
	Longitude        float64      `json:"longitude"`
	Manufacturer     Manufacturer `json:"manufacturer"`
	BuiltDate        string       `json:"builtDate,omitempty"`
	InstallationDate string       `json:"installationDate,omitempty"`
	Active           bool         `json:"active"`
	RatedCapacityKW  float64      `json:"ratedCapacityKW"`
	CreatedAt        string       `json:"createdAt,omitempty"`
	UpdatedAt        string       `json:"updatedAt,omitempty"`
}

// TurbineRecord is the flattened row every view renders. LatestPowerKW and
// LastUpdated are the live fields filled from the power stream.
type TurbineRecord struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	Manufacturer  string     `json:"manufacturer"`
	CapacityKW    float64    `json:"capacityKW"`
	Active        bool       `json:"active"`
	LatestPowerKW *float64   `json:"latestPowerKW,omitempty"`
	LastUpdated   *time.Time `json:"lastUpdated,omitempty"`
}

// RecordFromTurbine flattens a backend turbine into a view record.
func RecordFromTurbine(t Turbine) TurbineRecord {
	return TurbineRecord{
		ID:           t.ID,
		Name:         t.Name,
		Latitude:     t.Latitude,
		Longitude:    t.Longitude,
		Manufacturer: t.Manufacturer.Name,
		CapacityKW:   t.RatedCapacityKW,
		Active:       t.Active,
	}
}

// HasValidCoordinates reports whether the record can be placed on a map.
func (r TurbineRecord) HasValidCoordinates() bool {
	return r.Latitude >= -90 && r.Latitude <= 90 &&
		r.Longitude >= -180 && r.Longitude <= 180
}

// TurbineChanges is a partial set of editable turbine fields. A nil field is
// "not changed".
type TurbineChanges struct {
	Name         *string  `json:"name,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Manufacturer *string  `json:"manufacturer,omitempty"`
	CapacityKW   *float64 `json:"capacityKW,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

// IsEmpty reports whether no field is set.
func (c TurbineChanges) IsEmpty() bool {
	return c.Name == nil && c.Latitude == nil && c.Longitude == nil &&
		c.Manufacturer == nil && c.CapacityKW == nil && c.Active == nil
}

// Clone returns a deep copy so callers cannot mutate stored values through
// shared pointers.
func (c TurbineChanges) Clone() TurbineChanges {
	return TurbineChanges{
		Name:         clonePtr(c.Name),
		Latitude:     clonePtr(c.Latitude),
		Longitude:    clonePtr(c.Longitude),
		Manufacturer: clonePtr(c.Manufacturer),
		CapacityKW:   clonePtr(c.CapacityKW),
		Active:       clonePtr(c.Active),
	}
}

// Merge returns c with every field set in next overwriting c's value.
func (c TurbineChanges) Merge(next TurbineChanges) TurbineChanges {
	if next.Name != nil {
		c.Name = next.Name
	}
	if next.Latitude != nil {
		c.Latitude = next.Latitude
	}
	if next.Longitude != nil {
		c.Longitude = next.Longitude
	}
	if next.Manufacturer != nil {
		c.Manufacturer = next.Manufacturer
	}
	if next.CapacityKW != nil {
		c.CapacityKW = next.CapacityKW
	}
	if next.Active != nil {
		c.Active = next.Active
	}
	return c
}

// Apply layers the set fields onto r.
func (c TurbineChanges) Apply(r TurbineRecord) TurbineRecord {
	if c.Name != nil {
		r.Name = *c.Name
	}
	if c.Latitude != nil {
		r.Latitude = *c.Latitude
	}
	if c.Longitude != nil {
		r.Longitude = *c.Longitude
	}
	if c.Manufacturer != nil {
		r.Manufacturer = *c.Manufacturer
	}
	if c.CapacityKW != nil {
		r.CapacityKW = *c.CapacityKW
	}
	if c.Active != nil {
		r.Active = *c.Active
	}
	return r
}

// Unconfirmed returns only the fields whose value differs from r. Fields r
// already carries are considered confirmed by the backend.
func (c TurbineChanges) Unconfirmed(r TurbineRecord) TurbineChanges {
	var out TurbineChanges
	if c.Name != nil && *c.Name != r.Name {
		out.Name = c.Name
	}
	if c.Latitude != nil && *c.Latitude != r.Latitude {
		out.Latitude = c.Latitude
	}
	if c.Longitude != nil && *c.Longitude != r.Longitude {
		out.Longitude = c.Longitude
	}
	if c.Manufacturer != nil && *c.Manufacturer != r.Manufacturer {
		out.Manufacturer = c.Manufacturer
	}
	if c.CapacityKW != nil && *c.CapacityKW != r.CapacityKW {
		out.CapacityKW = c.CapacityKW
	}
	if c.Active != nil && *c.Active != r.Active {
		out.Active = c.Active
	}
	return out
}

// Confirmed returns only the fields whose value r already carries. It is the
// complement of Unconfirmed.
func (c TurbineChanges) Confirmed(r TurbineRecord) TurbineChanges {
	var out TurbineChanges
	if c.Name != nil && *c.Name == r.Name {
		out.Name = c.Name
	}
	if c.Latitude != nil && *c.Latitude == r.Latitude {
		out.Latitude = c.Latitude
	}
	if c.Longitude != nil && *c.Longitude == r.Longitude {
		out.Longitude = c.Longitude
	}
	if c.Manufacturer != nil && *c.Manufacturer == r.Manufacturer {
		out.Manufacturer = c.Manufacturer
	}
	if c.CapacityKW != nil && *c.CapacityKW == r.CapacityKW {
		out.CapacityKW = c.CapacityKW
	}
	if c.Active != nil && *c.Active == r.Active {
		out.Active = c.Active
	}
	return out
}

// Without drops every field of c that holds the same value in confirmed.
// Fields whose value has since changed are kept.
func (c TurbineChanges) Without(confirmed TurbineChanges) TurbineChanges {
	if sameValue(c.Name, confirmed.Name) {
		c.Name = nil
	}
	if sameValue(c.Latitude, confirmed.Latitude) {
		c.Latitude = nil
	}
	if sameValue(c.Longitude, confirmed.Longitude) {
		c.Longitude = nil
	}
	if sameValue(c.Manufacturer, confirmed.Manufacturer) {
		c.Manufacturer = nil
	}
	if sameValue(c.CapacityKW, confirmed.CapacityKW) {
		c.CapacityKW = nil
	}
	if sameValue(c.Active, confirmed.Active) {
		c.Active = nil
	}
	return c
}

func sameValue[T comparable](a, b *T) bool {
	return a != nil && b != nil && *a == *b
}

// ChangesFromPayload captures every field of a notification payload.
func ChangesFromPayload(p TurbinePayload) TurbineChanges {
	return TurbineChanges{
		Name:         &p.Name,
		Latitude:     &p.Latitude,
		Longitude:    &p.Longitude,
		Manufacturer: &p.Manufacturer,
		CapacityKW:   &p.CapacityKW,
		Active:       &p.Active,
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Handy when building TurbineChanges literals.
func Ptr[T any](v T) *T {
	return &v
}
