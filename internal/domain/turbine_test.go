package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTurbineID = "t1"

func baseRecord() TurbineRecord {
	return TurbineRecord{
		ID:           testTurbineID,
		Name:         "Horns Rev 01",
		Latitude:     55.48,
		Longitude:    7.84,
		Manufacturer: "Vestas",
		CapacityKW:   2000,
		Active:       true,
	}
}

func TestRecordFromTurbine(t *testing.T) {
	rec := RecordFromTurbine(Turbine{
		ID:              testTurbineID,
		Name:            "Horns Rev 01",
		Latitude:        55.48,
		Longitude:       7.84,
		Manufacturer:    Manufacturer{Name: "Vestas", Country: "DK"},
		Active:          true,
		RatedCapacityKW: 2000,
	})

	assert.Equal(t, baseRecord(), rec)
}

func TestTurbineChanges_MergeLastWriteWinsPerField(t *testing.T) {
	first := TurbineChanges{Name: Ptr("A"), Active: Ptr(true)}
	second := TurbineChanges{Active: Ptr(false), CapacityKW: Ptr(1500.0)}

	merged := first.Merge(second)

	require.NotNil(t, merged.Name)
	assert.Equal(t, "A", *merged.Name)
	assert.False(t, *merged.Active)
	assert.Equal(t, 1500.0, *merged.CapacityKW)
	assert.Nil(t, merged.Latitude)
}

func TestTurbineChanges_Apply(t *testing.T) {
	rec := TurbineChanges{Active: Ptr(false), Latitude: Ptr(10.5)}.Apply(baseRecord())

	assert.False(t, rec.Active)
	assert.Equal(t, 10.5, rec.Latitude)
	assert.Equal(t, "Horns Rev 01", rec.Name)
}

func TestTurbineChanges_ApplyEmptyIsIdentity(t *testing.T) {
	assert.True(t, TurbineChanges{}.IsEmpty())
	assert.Equal(t, baseRecord(), TurbineChanges{}.Apply(baseRecord()))
}

func TestTurbineChanges_Unconfirmed(t *testing.T) {
	c := TurbineChanges{Name: Ptr("Horns Rev 01"), Active: Ptr(false)}

	left := c.Unconfirmed(baseRecord())

	assert.Nil(t, left.Name, "name already matches the snapshot")
	require.NotNil(t, left.Active)
	assert.False(t, *left.Active)
}

func TestTurbineChanges_Confirmed(t *testing.T) {
	c := TurbineChanges{Name: Ptr("Horns Rev 01"), Active: Ptr(false)}

	got := c.Confirmed(baseRecord())

	require.NotNil(t, got.Name)
	assert.Equal(t, "Horns Rev 01", *got.Name)
	assert.Nil(t, got.Active, "active differs from the snapshot")
}

func TestTurbineChanges_Without(t *testing.T) {
	current := TurbineChanges{Name: Ptr("Edited"), Active: Ptr(false), CapacityKW: Ptr(3000.0)}
	confirmed := TurbineChanges{Name: Ptr("Original"), Active: Ptr(false)}

	left := current.Without(confirmed)

	require.NotNil(t, left.Name, "a newer value is not dropped")
	assert.Equal(t, "Edited", *left.Name)
	assert.Nil(t, left.Active)
	require.NotNil(t, left.CapacityKW)
	assert.Equal(t, 3000.0, *left.CapacityKW)
	assert.True(t, current.Without(current).IsEmpty())
}

func TestChangesFromPayload(t *testing.T) {
	p := TurbinePayload{ID: testTurbineID, Name: "X", Active: true, CapacityKW: 3}
	c := ChangesFromPayload(p)

	rec := c.Apply(TurbineRecord{ID: testTurbineID})
	assert.Equal(t, p.Record(), rec)
}

func TestHasValidCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{55.4, 7.8, true},
		{-90, 180, true},
		{91, 0, false},
		{0, -181, false},
	}
	for _, tt := range tests {
		r := TurbineRecord{Latitude: tt.lat, Longitude: tt.lon}
		assert.Equal(t, tt.want, r.HasValidCoordinates(), "lat=%v lon=%v", tt.lat, tt.lon)
	}
}
