package reconcile

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/overrides"
)

// State is the lifecycle of a view's base snapshot.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state name in JSON bodies.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateIdle, StateLoading, StateReady, StateFailed} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown view state %q", text)
}

// Status describes the view for the status endpoint.
type Status struct {
	State    State      `json:"state"`
	Error    string     `json:"error,omitempty"`
	Records  int        `json:"records"`
	LoadedAt *time.Time `json:"loadedAt,omitempty"`
}

// Marker is a turbine positioned on the map.
type Marker struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Active        bool     `json:"active"`
	LatestPowerKW *float64 `json:"latestPowerKW,omitempty"`
}

// Detail is one turbine with its trailing power series.
type Detail struct {
	Record domain.TurbineRecord `json:"record"`
	Series []domain.Reading     `json:"series"`
}

// View holds a base snapshot plus trailing readings and renders records
// through the injected override store.
type View struct {
	store overrides.Store

	mu       sync.RWMutex
	state    State
	loadErr  error
	loadGen  uint64
	loadedAt time.Time
	order    []string
	base     map[string]domain.TurbineRecord
	window   *Window
}

// NewView creates an idle view.
func NewView(store overrides.Store, windowSize int) *View {
	return &View{
		store:  store,
		base:   make(map[string]domain.TurbineRecord),
		window: NewWindow(windowSize),
	}
}

// BeginLoad moves the view to Loading and returns a token that Load or Fail
// must present. Only the most recent token commits; older loads are stale.
func (v *View) BeginLoad() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loadGen++
	v.state = StateLoading
	return v.loadGen
}

// Load replaces the base snapshot wholesale. It reports false, committing
// nothing, when token is stale.
func (v *View) Load(token uint64, records []domain.TurbineRecord) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if token != v.loadGen || v.state != StateLoading {
		return false
	}

	order := make([]string, 0, len(records))
	base := make(map[string]domain.TurbineRecord, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if _, dup := base[r.ID]; !dup {
			order = append(order, r.ID)
		}
		r.LatestPowerKW, r.LastUpdated = nil, nil
		base[r.ID] = r
	}
	v.order = order
	v.base = base
	v.state = StateReady
	v.loadErr = nil
	v.loadedAt = domain.Clock().Now().UTC()
	return true
}

// Fail records a load error. Any previous snapshot is kept and stays
// renderable. It reports false when token is stale.
func (v *View) Fail(token uint64, err error) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if token != v.loadGen || v.state != StateLoading {
		return false
	}
	v.state = StateFailed
	v.loadErr = err
	return true
}

// State returns the current lifecycle state.
func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// HasSnapshot reports whether a snapshot has ever been loaded.
func (v *View) HasSnapshot() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.loadedAt.IsZero()
}

// Status summarizes the view.
func (v *View) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	st := Status{State: v.state, Records: len(v.order)}
	if v.loadErr != nil {
		st.Error = v.loadErr.Error()
	}
	if !v.loadedAt.IsZero() {
		t := v.loadedAt
		st.LoadedAt = &t
	}
	return st
}

// IDs returns the snapshot ids in display order.
func (v *View) IDs() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.order)
}

// Apply folds a notification into the snapshot. Created appends (or
// replaces in place when the id is already present), updated patches an
// existing record, deleted removes it. It reports whether the id set
// changed.
func (v *View) Apply(n domain.Notification) bool {
	if n.Validate() != nil {
		return false
	}
	id := n.Turbine.ID

	v.mu.Lock()
	defer v.mu.Unlock()

	switch n.Kind {
	case domain.TurbineCreated:
		_, exists := v.base[id]
		v.base[id] = n.Turbine.Record()
		if !exists {
			v.order = append(v.order, id)
		}
		return !exists
	case domain.TurbineUpdated:
		cur, ok := v.base[id]
		if !ok {
			return false
		}
		v.base[id] = domain.ChangesFromPayload(n.Turbine).Apply(cur)
		return false
	case domain.TurbineDeleted:
		if _, ok := v.base[id]; !ok {
			return false
		}
		delete(v.base, id)
		v.order = slices.DeleteFunc(v.order, func(s string) bool { return s == id })
		v.window.Remove(id)
		return true
	}
	return false
}

// ApplyReadings appends a batch to the trailing window in arrival order.
func (v *View) ApplyReadings(batch []domain.Reading) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range batch {
		if r.WindTurbineID != "" {
			v.window.Push(r)
		}
	}
}

// Latest returns the newest reading per turbine.
func (v *View) Latest() map[string]domain.Reading {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.window.LatestAll()
}

// Records renders every snapshot record in display order.
func (v *View) Records(ctx context.Context) ([]domain.TurbineRecord, error) {
	all, err := v.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]domain.TurbineRecord, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.mergeLocked(id, all))
	}
	return out, nil
}

// Table is the list view's call site.
func (v *View) Table(ctx context.Context) ([]domain.TurbineRecord, error) {
	return v.Records(ctx)
}

// Markers renders the records that can be placed on a map.
func (v *View) Markers(ctx context.Context) ([]Marker, error) {
	records, err := v.Records(ctx)
	if err != nil {
		return nil, err
	}
	markers := make([]Marker, 0, len(records))
	for _, r := range records {
		if !r.HasValidCoordinates() {
			continue
		}
		markers = append(markers, Marker{
			ID:            r.ID,
			Name:          r.Name,
			Latitude:      r.Latitude,
			Longitude:     r.Longitude,
			Active:        r.Active,
			LatestPowerKW: r.LatestPowerKW,
		})
	}
	return markers, nil
}

// Detail renders one record with its trailing readings.
func (v *View) Detail(ctx context.Context, id string) (Detail, error) {
	override, found, err := v.store.Get(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("load override %s: %w", id, err)
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if _, ok := v.base[id]; !ok {
		return Detail{}, fmt.Errorf("turbine %s: %w", id, domain.ErrNotFound)
	}
	all := map[string]domain.TurbineChanges{}
	if found {
		all[id] = override
	}
	return Detail{
		Record: v.mergeLocked(id, all),
		Series: v.window.Series(id),
	}, nil
}

func (v *View) mergeLocked(id string, all map[string]domain.TurbineChanges) domain.TurbineRecord {
	var override *domain.TurbineChanges
	if ch, ok := all[id]; ok {
		override = &ch
	}
	var latest *domain.Reading
	if r, ok := v.window.Latest(id); ok {
		latest = &r
	}
	return Merge(v.base[id], override, latest)
}

// PruneConfirmed drops override fields the base snapshot already carries.
// Entries left with no field are cleared. Overrides for ids outside the
// snapshot are kept, and so is any field upserted with a new value while
// the prune runs. It returns the number of entries changed.
func (v *View) PruneConfirmed(ctx context.Context) (int, error) {
	all, err := v.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load overrides: %w", err)
	}

	v.mu.RLock()
	base := make(map[string]domain.TurbineRecord, len(all))
	for id := range all {
		if r, ok := v.base[id]; ok {
			base[id] = r
		}
	}
	v.mu.RUnlock()

	pruned := 0
	for id, ch := range all {
		r, ok := base[id]
		if !ok {
			continue
		}
		confirmed := ch.Confirmed(r)
		if confirmed.IsEmpty() {
			continue
		}
		changed, err := v.store.RemoveConfirmed(ctx, id, confirmed)
		if err != nil {
			return pruned, fmt.Errorf("prune override %s: %w", id, err)
		}
		if changed {
			pruned++
		}
	}
	return pruned, nil
}
