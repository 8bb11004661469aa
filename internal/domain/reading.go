package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Reading is one streamed power-output data point for a turbine.
type Reading struct {
	WindTurbineID string  `json:"windTurbineId"`
	PowerKW       float64 `json:"powerKW"`
	Timestamp     string  `json:"timestamp"` // ISO-8601 as sent by the stream
	Outlier       bool    `json:"outlier,omitempty"`
	OutlierType   string  `json:"outlierType,omitempty"` // e.g. "high", "low", "anomaly"
}

// UnmarshalJSON accepts the turbine id under windTurbineId, turbineId or id,
// in that order of preference.
func (r *Reading) UnmarshalJSON(data []byte) error {
	type plain Reading
	var aux struct {
		plain
		TurbineID string `json:"turbineId"`
		ID        string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Reading(aux.plain)
	if r.WindTurbineID == "" {
		r.WindTurbineID = aux.TurbineID
	}
	if r.WindTurbineID == "" {
		r.WindTurbineID = aux.ID
	}
	return nil
}

// Time parses the reading timestamp.
func (r Reading) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse reading timestamp %q: %w", r.Timestamp, err)
	}
	return t, nil
}

// ReadingBatch is the batched stream payload.
type ReadingBatch struct {
	PowerOutputs []Reading `json:"powerOutputs"`
}

// DecodeReadings parses a stream payload that is either a batch
// ({"powerOutputs": [...]}), a bare array, or a single reading. Readings
// without a turbine id are dropped.
func DecodeReadings(data []byte) ([]Reading, error) {
	data = bytes.TrimSpace(data)
	var readings []Reading
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &readings); err != nil {
			return nil, fmt.Errorf("decode power outputs: %w", err)
		}
		return withTurbineID(readings), nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode stream payload: %w", err)
	}

	if raw, ok := probe["powerOutputs"]; ok {
		if err := json.Unmarshal(raw, &readings); err != nil {
			return nil, fmt.Errorf("decode power outputs: %w", err)
		}
	} else {
		var single Reading
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("decode power output: %w", err)
		}
		readings = []Reading{single}
	}

	return withTurbineID(readings), nil
}

func withTurbineID(readings []Reading) []Reading {
	out := readings[:0]
	for _, r := range readings {
		if r.WindTurbineID != "" {
			out = append(out, r)
		}
	}
	return out
}
