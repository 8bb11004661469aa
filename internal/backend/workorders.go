package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
)

const workOrdersPath = "/api/1/workorders"

// ListWorkOrders fetches one listing of work orders. query is forwarded
// as-is (e.g. windTurbineId, status, limit, page).
func (c *Client) ListWorkOrders(ctx context.Context, query url.Values) ([]domain.WorkOrder, error) {
	path := workOrdersPath
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	orders, err := decodeList[domain.WorkOrder](raw)
	if err != nil {
		return nil, fmt.Errorf("decode work orders: %w", err)
	}
	return orders, nil
}

// GetWorkOrder fetches one work order.
func (c *Client) GetWorkOrder(ctx context.Context, id string) (domain.WorkOrder, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, workOrdersPath+"/"+url.PathEscape(id), nil, &raw); err != nil {
		return domain.WorkOrder{}, err
	}
	var wrapped struct {
		Data *domain.WorkOrder `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil {
		return *wrapped.Data, nil
	}
	var wo domain.WorkOrder
	if err := json.Unmarshal(raw, &wo); err != nil || wo.ID == "" {
		return domain.WorkOrder{}, fmt.Errorf("work order %s: %w", id, domain.ErrNoData)
	}
	return wo, nil
}

// ListComments fetches the first page of comments on a work order.
func (c *Client) ListComments(ctx context.Context, workOrderID string, limit int) ([]domain.WorkOrderComment, error) {
	if limit <= 0 {
		limit = 20
	}
	path := pageURL(workOrdersPath+"/"+url.PathEscape(workOrderID)+"/comments", limit, 1)
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	comments, err := decodeList[domain.WorkOrderComment](raw)
	if err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

// AllWorkOrders pages through every work order.
func (c *Client) AllWorkOrders(ctx context.Context, pageSize int) ([]domain.WorkOrder, error) {
	return FetchAll[domain.WorkOrder](ctx, c, workOrdersPath, pageSize)
}
