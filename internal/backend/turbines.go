package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
)

const turbinesPath = "/api/1/windturbines"

// TurbineInput is the write payload for creating or updating a turbine.
type TurbineInput struct {
	Name             string              `json:"name"`
	Latitude         float64             `json:"latitude"`
	Longitude        float64             `json:"longitude"`
	Active           bool                `json:"active"`
	RatedCapacityKW  float64             `json:"ratedCapacityKW"`
	Manufacturer     domain.Manufacturer `json:"manufacturer"`
	BuiltDate        string              `json:"builtDate,omitempty"`
	InstallationDate string              `json:"installationDate,omitempty"`
}

// AllTurbines fetches the full turbine snapshot page by page.
func (c *Client) AllTurbines(ctx context.Context, pageSize int) ([]domain.Turbine, error) {
	return FetchAll[domain.Turbine](ctx, c, turbinesPath, pageSize)
}

// GetTurbine fetches one turbine. The backend may wrap it in {data: ...}.
func (c *Client) GetTurbine(ctx context.Context, id string) (domain.Turbine, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, turbinePath(id), nil, &raw); err != nil {
		return domain.Turbine{}, err
	}
	t, ok, err := decodeTurbine(raw)
	if err != nil {
		return domain.Turbine{}, fmt.Errorf("decode turbine %s: %w", id, err)
	}
	if !ok {
		return domain.Turbine{}, fmt.Errorf("turbine %s: %w", id, domain.ErrNoData)
	}
	return t, nil
}

// CreateTurbine posts a new turbine and returns what the backend echoed.
// The returned turbine is zero when the backend answers without a body.
func (c *Client) CreateTurbine(ctx context.Context, in TurbineInput) (domain.Turbine, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodPost, turbinesPath, in, &raw); err != nil {
		return domain.Turbine{}, err
	}
	t, _, err := decodeTurbine(raw)
	if err != nil {
		c.logger.Debug("create turbine response not decodable", "error", err)
	}
	return t, nil
}

// UpdateTurbine sends a PATCH and retries once with PUT when the PATCH
// fails for any reason.
func (c *Client) UpdateTurbine(ctx context.Context, id string, in TurbineInput) error {
	patchErr := c.Do(ctx, http.MethodPatch, turbinePath(id), in, nil)
	if patchErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return patchErr
	}
	c.logger.Debug("turbine PATCH failed, retrying with PUT", "id", id, "error", patchErr)
	if err := c.Do(ctx, http.MethodPut, turbinePath(id), in, nil); err != nil {
		return err
	}
	return nil
}

// DeleteTurbine removes a turbine.
func (c *Client) DeleteTurbine(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, turbinePath(id), nil, nil)
}

func turbinePath(id string) string {
	return turbinesPath + "/" + url.PathEscape(id)
}

// decodeTurbine accepts a turbine or {data: turbine}.
func decodeTurbine(raw json.RawMessage) (domain.Turbine, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.Turbine{}, false, nil
	}
	var wrapped struct {
		Data *domain.Turbine `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return domain.Turbine{}, false, err
	}
	if wrapped.Data != nil {
		return *wrapped.Data, true, nil
	}
	var t domain.Turbine
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Turbine{}, false, err
	}
	return t, t.ID != "", nil
}
