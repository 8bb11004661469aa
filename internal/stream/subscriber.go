// Package stream subscribes to the backend's power-output event stream.
//
// A Subscription is scoped to exactly one turbine id set and interval. It
// never reconnects on its own: when it fails, the error is kept on the
// subscription and the caller decides when to subscribe again (see Feed).
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/observability"
)

// Event types carrying power readings.
const (
	EventPowerOutput = "power-output"
	EventMessage     = "message"
	EventError       = "error"
)

// ErrStreamEnded is reported when the server closes the stream.
var ErrStreamEnded = errors.New("power stream ended by server")

// Subscriber opens power-output streams against one endpoint.
type Subscriber struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewSubscriber creates a subscriber for the stream endpoint, e.g.
// http://localhost:3000/api/1/stream/power-output. A nil client gets a
// default one without a timeout, since streams are long-lived.
func NewSubscriber(endpoint string, client *http.Client, logger *slog.Logger, metrics *observability.Metrics) *Subscriber {
	if client == nil {
		client = &http.Client{}
	}
	return &Subscriber{
		endpoint:   endpoint,
		httpClient: client,
		logger:     logger,
		metrics:    metrics,
	}
}

// Subscribe opens one connection for ids at the given interval (seconds).
// An empty id set opens nothing and returns an already finished
// subscription. The connection lives until ctx is cancelled, Close is
// called, or the stream fails.
func (s *Subscriber) Subscribe(ctx context.Context, ids []string, interval int) (*Subscription, error) {
	sub := &Subscription{
		ids:      append([]string(nil), ids...),
		interval: interval,
		readings: make(chan []domain.Reading, 16),
		done:     make(chan struct{}),
		cancel:   func() {},
	}
	if len(ids) == 0 {
		close(sub.readings)
		close(sub.done)
		return sub, nil
	}

	streamCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, s.streamURL(ids, interval), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		s.metrics.StreamErrors.Inc()
		return nil, &domain.APIError{Network: true, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		s.metrics.StreamErrors.Inc()
		return nil, &domain.APIError{Status: resp.StatusCode, StatusText: resp.Status, Body: string(body)}
	}

	sub.cancel = cancel
	s.metrics.StreamConnections.Inc()
	s.logger.Info("power stream connected", "turbines", len(ids), "interval", interval)

	go s.consume(streamCtx, resp.Body, sub)
	return sub, nil
}

func (s *Subscriber) streamURL(ids []string, interval int) string {
	params := url.Values{
		"windTurbineIds": {strings.Join(ids, ",")},
		"interval":       {strconv.Itoa(interval)},
	}
	return s.endpoint + "?" + params.Encode()
}

func (s *Subscriber) consume(ctx context.Context, body io.ReadCloser, sub *Subscription) {
	var streamErr error
	defer func() {
		body.Close()
		s.metrics.StreamConnections.Dec()
		if streamErr != nil && ctx.Err() == nil {
			s.metrics.StreamErrors.Inc()
			s.logger.Error("power stream failed", "error", streamErr, "turbines", len(sub.ids))
		} else {
			streamErr = nil
		}
		sub.finish(streamErr)
	}()

	dec := NewDecoder(body)
	for {
		ev, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				streamErr = ErrStreamEnded
			} else {
				streamErr = &domain.APIError{Network: true, Err: err}
			}
			return
		}

		switch ev.Type {
		case EventPowerOutput, EventMessage:
			batch, err := domain.DecodeReadings([]byte(ev.Data))
			if err != nil {
				s.metrics.StreamFrameErrors.Inc()
				s.logger.Warn("skipping undecodable stream frame", "error", err, "event", ev.Type)
				continue
			}
			if len(batch) == 0 {
				continue
			}
			s.metrics.StreamReadings.Add(float64(len(batch)))
			select {
			case sub.readings <- batch:
			case <-ctx.Done():
				return
			}
		case EventError:
			streamErr = fmt.Errorf("power stream error event: %s", ev.Data)
			return
		}
	}
}

// Subscription is one open (or finished) stream connection.
type Subscription struct {
	ids      []string
	interval int
	readings chan []domain.Reading
	done     chan struct{}
	cancel   context.CancelFunc

	mu  sync.Mutex
	err error
}

// Readings delivers reading batches in arrival order. It is closed when the
// subscription finishes.
func (s *Subscription) Readings() <-chan []domain.Reading {
	return s.readings
}

// Done is closed once the subscription has finished and no further batch
// will be delivered.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the subscription, or nil when it is still
// running or was closed deliberately.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// IDs returns the turbine ids the subscription is scoped to.
func (s *Subscription) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Interval returns the requested interval in seconds.
func (s *Subscription) Interval() int {
	return s.interval
}

// Finished reports whether the subscription has ended.
func (s *Subscription) Finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close tears the connection down and waits until no batch can be delivered.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

func (s *Subscription) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.readings)
	close(s.done)
}
