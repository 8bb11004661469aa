package backend

import (
	"context"
	"fmt"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Summary builds the fleet summary from the backend's turbines and work
// orders. latest supplies the average power; nil or empty yields zero.
func (c *Client) Summary(ctx context.Context, pageSize int, latest map[string]domain.Reading) (domain.Summary, error) {
	var (
		turbines []domain.Turbine
		orders   []domain.WorkOrder
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		turbines, err = c.AllTurbines(gctx, pageSize)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = c.AllWorkOrders(gctx, pageSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Summary{}, fmt.Errorf("load summary data: %w", err)
	}

	records := make([]domain.TurbineRecord, 0, len(turbines))
	for _, t := range turbines {
		records = append(records, domain.RecordFromTurbine(t))
	}
	return domain.Summarize(records, orders, latest), nil
}
