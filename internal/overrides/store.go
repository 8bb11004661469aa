// Package overrides holds pending local turbine edits keyed by turbine id.
//
// An override is created when a user saves an edit and is layered on top of
// the base snapshot by every view until it is cleared. Values are not
// validated here and entries never expire.
package overrides

import (
	"context"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
)

// Store maps turbine id to a partial field-set.
type Store interface {
	// Upsert merges changes into the entry for id, field by field, creating
	// it if absent. Empty changes are a no-op.
	Upsert(ctx context.Context, id string, changes domain.TurbineChanges) error
	// Clear removes the entry for id. Clearing an absent id is not an error.
	Clear(ctx context.Context, id string) error
	// Get returns the entry for id and whether one exists.
	Get(ctx context.Context, id string) (domain.TurbineChanges, bool, error)
	// All returns a copy of every entry.
	All(ctx context.Context) (map[string]domain.TurbineChanges, error)
	// RemoveConfirmed drops the fields of id's entry that still hold the
	// values in confirmed, atomically with respect to Upsert. A field
	// upserted with a different value since it was read is kept. The entry
	// is removed once no field is left. It reports whether anything changed.
	RemoveConfirmed(ctx context.Context, id string, confirmed domain.TurbineChanges) (bool, error)
}
