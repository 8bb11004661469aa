package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification_AssignsEventID(t *testing.T) {
	a := NewNotification(TurbineCreated, TurbinePayload{ID: "t1"})
	b := NewNotification(TurbineCreated, TurbinePayload{ID: "t1"})

	assert.NotEmpty(t, a.EventID)
	assert.NotEqual(t, a.EventID, b.EventID)
	require.NoError(t, a.Validate())
}

func TestNotification_Validate(t *testing.T) {
	require.Error(t, Notification{Kind: "turbine:exploded", Turbine: TurbinePayload{ID: "t1"}}.Validate())
	require.Error(t, Notification{Kind: TurbineDeleted}.Validate())
	require.NoError(t, Notification{Kind: TurbineDeleted, Turbine: TurbinePayload{ID: "t1"}}.Validate())
}
