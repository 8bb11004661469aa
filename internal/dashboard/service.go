// Package dashboard orchestrates the reconciled turbine views: it loads the
// paged snapshot, keeps the power stream attached to the current id set and
// folds readings and notifications into the view.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/observability"
	"github.com/couchcryptid/turbine-dashboard/internal/reconcile"
	"github.com/couchcryptid/turbine-dashboard/internal/stream"
)

// SnapshotSource fetches the full turbine snapshot.
type SnapshotSource interface {
	AllTurbines(ctx context.Context, pageSize int) ([]domain.Turbine, error)
}

// Summarizer builds the fleet summary for the latest readings.
type Summarizer interface {
	Summary(ctx context.Context, pageSize int, latest map[string]domain.Reading) (domain.Summary, error)
}

// StreamFeed keeps one power stream subscription current.
type StreamFeed interface {
	Resubscribe(ctx context.Context, ids []string, interval int) (*stream.Subscription, bool, error)
	Close()
}

// Options tunes the service.
type Options struct {
	PageSize       int
	StreamMax      int // ids subscribed, taken from the front of the snapshot
	StreamInterval int // seconds
}

// StreamStatus describes the power stream attachment.
type StreamStatus struct {
	Connected  bool   `json:"connected"`
	TurbineIDs int    `json:"turbineIds"`
	Interval   int    `json:"interval"`
	Error      string `json:"error,omitempty"`
}

// Status is the combined view and stream status.
type Status struct {
	View   reconcile.Status `json:"view"`
	Stream StreamStatus     `json:"stream"`
}

// Service owns the dashboard's reconciliation loop. Run is the only writer;
// every other method is safe to call from HTTP handlers.
type Service struct {
	source  SnapshotSource
	summary Summarizer
	feed    StreamFeed
	view    *reconcile.View
	notes   <-chan domain.Notification
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options

	refreshCh chan chan error
	ready     atomic.Bool

	streamMu sync.RWMutex
	stream   StreamStatus
}

// New creates a dashboard service. notes delivers turbine notifications,
// typically a notify.Bus subscription.
func New(source SnapshotSource, summary Summarizer, feed StreamFeed, view *reconcile.View, notes <-chan domain.Notification, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Service {
	return &Service{
		source:    source,
		summary:   summary,
		feed:      feed,
		view:      view,
		notes:     notes,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
		refreshCh: make(chan chan error),
	}
}

// CheckReadiness returns nil once a snapshot is held.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no turbine snapshot loaded yet")
	}
	return nil
}

// Run loads the snapshot, attaches the stream and processes readings,
// notifications and refresh requests until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("dashboard started",
		"page_size", s.opts.PageSize,
		"stream_max", s.opts.StreamMax,
		"stream_interval", s.opts.StreamInterval,
	)
	defer s.feed.Close()
	defer s.metrics.DashboardReady.Set(0)

	// Until the first snapshot is held, failed loads are retried with
	// exponential backoff. Afterwards only Refresh reloads.
	backoff := 200 * time.Millisecond
	maxBackoff := 30 * time.Second
	var retry <-chan time.Time

	var sub *stream.Subscription
	if err := s.reload(ctx); err != nil && ctx.Err() == nil {
		retry = domain.Clock().After(backoff)
	}
	sub = s.resubscribe(ctx)

	for {
		var readings <-chan []domain.Reading
		if sub != nil {
			readings = sub.Readings()
		}

		select {
		case <-ctx.Done():
			s.logger.Info("dashboard stopping", "reason", ctx.Err())
			return nil

		case batch, ok := <-readings:
			if !ok {
				s.streamEnded(sub)
				sub = nil
				continue
			}
			s.view.ApplyReadings(batch)

		case n, ok := <-s.notes:
			if !ok {
				s.notes = nil
				continue
			}
			if s.view.Apply(n) {
				s.logger.Debug("turbine id set changed", "kind", n.Kind, "id", n.Turbine.ID)
				sub = s.resubscribe(ctx)
			}

		case done := <-s.refreshCh:
			err := s.reload(ctx)
			if err == nil {
				retry = nil
			}
			sub = s.resubscribe(ctx)
			done <- err

		case <-retry:
			retry = nil
			if err := s.reload(ctx); err != nil {
				if ctx.Err() != nil || s.view.HasSnapshot() {
					continue
				}
				backoff = nextBackoff(backoff, maxBackoff)
				retry = domain.Clock().After(backoff)
				continue
			}
			sub = s.resubscribe(ctx)
		}
	}
}

// Refresh asks Run to refetch the snapshot and waits for the result.
func (s *Service) Refresh(ctx context.Context) error {
	done := make(chan error, 1)
	select {
	case s.refreshCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reload fetches the whole snapshot and commits it unless ctx was cancelled.
// A successful load prunes overrides the backend now confirms.
func (s *Service) reload(ctx context.Context) error {
	token := s.view.BeginLoad()
	start := time.Now()

	turbines, err := s.source.AllTurbines(ctx, s.opts.PageSize)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		s.view.Fail(token, err)
		s.logger.Error("turbine snapshot failed", "error", err, "class", domain.Classify(err))
		return fmt.Errorf("load snapshot: %w", err)
	}

	records := make([]domain.TurbineRecord, 0, len(turbines))
	for _, t := range turbines {
		records = append(records, domain.RecordFromTurbine(t))
	}
	if !s.view.Load(token, records) {
		return nil
	}

	s.metrics.SnapshotFetchDuration.Observe(time.Since(start).Seconds())
	s.metrics.SnapshotRecords.Set(float64(len(records)))
	s.metrics.DashboardReady.Set(1)
	s.ready.Store(true)
	s.logger.Info("turbine snapshot loaded", "records", len(records), "duration", time.Since(start))

	pruned, err := s.view.PruneConfirmed(ctx)
	if err != nil {
		s.logger.Warn("prune overrides failed", "error", err)
	}
	if pruned > 0 {
		s.metrics.OverridesPruned.Add(float64(pruned))
		s.logger.Debug("pruned confirmed overrides", "count", pruned)
	}
	return nil
}

// resubscribe points the stream at the first StreamMax snapshot ids.
func (s *Service) resubscribe(ctx context.Context) *stream.Subscription {
	ids := s.view.IDs()
	if s.opts.StreamMax > 0 && len(ids) > s.opts.StreamMax {
		ids = ids[:s.opts.StreamMax]
	}

	sub, changed, err := s.feed.Resubscribe(ctx, ids, s.opts.StreamInterval)
	if err != nil {
		s.setStream(StreamStatus{TurbineIDs: len(ids), Interval: s.opts.StreamInterval, Error: err.Error()})
		s.logger.Error("power stream subscribe failed", "error", err, "turbines", len(ids))
		return nil
	}
	if changed {
		s.logger.Debug("power stream subscribed", "turbines", len(ids))
	}
	s.setStream(StreamStatus{Connected: len(ids) > 0 && !sub.Finished(), TurbineIDs: len(ids), Interval: s.opts.StreamInterval})
	return sub
}

func (s *Service) streamEnded(sub *stream.Subscription) {
	st := StreamStatus{TurbineIDs: len(sub.IDs()), Interval: sub.Interval()}
	if err := sub.Err(); err != nil {
		st.Error = err.Error()
	}
	s.setStream(st)
}

func (s *Service) setStream(st StreamStatus) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	s.stream = st
}

// Status reports the view lifecycle and the stream attachment.
func (s *Service) Status() Status {
	s.streamMu.RLock()
	defer s.streamMu.RUnlock()
	return Status{View: s.view.Status(), Stream: s.stream}
}

// Table renders every turbine record.
func (s *Service) Table(ctx context.Context) ([]domain.TurbineRecord, error) {
	return s.view.Table(ctx)
}

// Markers renders the map markers.
func (s *Service) Markers(ctx context.Context) ([]reconcile.Marker, error) {
	return s.view.Markers(ctx)
}

// Detail renders one turbine with its power series.
func (s *Service) Detail(ctx context.Context, id string) (reconcile.Detail, error) {
	return s.view.Detail(ctx, id)
}

// Latest returns the newest reading per turbine.
func (s *Service) Latest() map[string]domain.Reading {
	return s.view.Latest()
}

// Summary builds the fleet summary using the streamed readings for the
// average power.
func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	return s.summary.Summary(ctx, s.opts.PageSize, s.view.Latest())
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
