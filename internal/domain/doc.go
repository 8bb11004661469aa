// Package domain models the wind-turbine fleet as the dashboard sees it.
//
// # Records
//
// The backend returns [Turbine] values; every view renders the flattened
// [TurbineRecord]. A record's value for a field is resolved in this order:
//
//	override (pending local edit, see [TurbineChanges])
//	latest streamed reading (only the live field, LatestPowerKW)
//	base snapshot
//
// # Readings
//
// The power stream sends either {"powerOutputs": [...]} batches or single
// readings. Turbine ids may arrive as windTurbineId, turbineId or id; see
// [DecodeReadings]. Readings are ordered by arrival, not by timestamp.
//
// # Notifications
//
// Create/update/delete broadcasts carry a random event id so subscribers can
// drop repeated deliveries of the same occurrence. They are never persisted.
//
// # Errors
//
// [Classify] separates network failures, 5xx "backend down" responses,
// validation failures and empty collections so each can get its own message.
package domain
