// Package reconcile combines the base turbine snapshot, pending overrides and
// live power readings into the records every view renders.
package reconcile

import "github.com/couchcryptid/turbine-dashboard/internal/domain"

// Merge renders one record. Order: base, then every override field that is
// set, then the latest reading into the live fields. A nil override or nil
// latest leaves that layer out.
func Merge(base domain.TurbineRecord, override *domain.TurbineChanges, latest *domain.Reading) domain.TurbineRecord {
	r := base
	if override != nil {
		r = override.Apply(r)
	}
	if latest != nil {
		power := latest.PowerKW
		r.LatestPowerKW = &power
		ts, err := latest.Time()
		if err != nil {
			ts = domain.Clock().Now().UTC()
		}
		r.LastUpdated = &ts
	}
	return r
}
