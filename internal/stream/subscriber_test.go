package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWait = 2 * time.Second

func testSubscriber(url string) *Subscriber {
	return NewSubscriber(url, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

// sseServer writes frames then holds the connection open until the client
// goes away.
func sseServer(t *testing.T, hits *atomic.Int32, frames ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		flusher.Flush()
		for _, f := range frames {
			fmt.Fprint(w, f)
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func receive(t *testing.T, sub *Subscription) []domain.Reading {
	t.Helper()
	select {
	case batch, ok := <-sub.Readings():
		require.True(t, ok, "subscription finished early: %v", sub.Err())
		return batch
	case <-time.After(testWait):
		t.Fatal("timed out waiting for readings")
		return nil
	}
}

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(testWait):
		t.Fatal("timed out waiting for subscription to finish")
	}
}

func TestSubscribe_EmptyIDsOpensNoConnection(t *testing.T) {
	var hits atomic.Int32
	srv := sseServer(t, &hits)

	sub, err := testSubscriber(srv.URL).Subscribe(context.Background(), nil, 5)
	require.NoError(t, err)

	assert.True(t, sub.Finished())
	_, ok := <-sub.Readings()
	assert.False(t, ok)
	assert.NoError(t, sub.Err())
	assert.Equal(t, int32(0), hits.Load())
}

func TestSubscribe_QueryParameters(t *testing.T) {
	got := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Clone(context.Background())
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	sub, err := testSubscriber(srv.URL+"/api/1/stream/power-output").Subscribe(context.Background(), []string{"t1", "t2"}, 5)
	require.NoError(t, err)
	defer sub.Close()

	r := <-got
	assert.Equal(t, "/api/1/stream/power-output", r.URL.Path)
	assert.Equal(t, "t1,t2", r.URL.Query().Get("windTurbineIds"))
	assert.Equal(t, "5", r.URL.Query().Get("interval"))
	assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
	assert.Equal(t, []string{"t1", "t2"}, sub.IDs())
	assert.Equal(t, 5, sub.Interval())
}

func TestSubscribe_DeliversReading(t *testing.T) {
	srv := sseServer(t, nil,
		"event: power-output\ndata: {\"windTurbineId\":\"t2\",\"powerKW\":1234.5,\"timestamp\":\"2024-05-01T12:00:00Z\"}\n\n",
	)

	sub, err := testSubscriber(srv.URL).Subscribe(context.Background(), []string{"t2"}, 5)
	require.NoError(t, err)
	defer sub.Close()

	batch := receive(t, sub)
	require.Len(t, batch, 1)
	assert.Equal(t, "t2", batch[0].WindTurbineID)
	assert.Equal(t, 1234.5, batch[0].PowerKW)
}

func TestSubscribe_BatchAndSkipsBadFrames(t *testing.T) {
	srv := sseServer(t, nil,
		"data: not json\n\n",
		"event: heartbeat\ndata: {}\n\n",
		"event: power-output\ndata: {\"powerOutputs\":[{\"windTurbineId\":\"t1\",\"powerKW\":1},{\"turbineId\":\"t2\",\"powerKW\":2}]}\n\n",
	)

	sub, err := testSubscriber(srv.URL).Subscribe(context.Background(), []string{"t1", "t2"}, 5)
	require.NoError(t, err)
	defer sub.Close()

	batch := receive(t, sub)
	require.Len(t, batch, 2)
	assert.Equal(t, "t1", batch[0].WindTurbineID)
	assert.Equal(t, "t2", batch[1].WindTurbineID)
	assert.False(t, sub.Finished())
}

func TestSubscribe_ErrorEventEndsSubscription(t *testing.T) {
	srv := sseServer(t, nil, "event: error\ndata: {\"error\":\"upstream unavailable\"}\n\n")

	sub, err := testSubscriber(srv.URL).Subscribe(context.Background(), []string{"t1"}, 5)
	require.NoError(t, err)

	waitDone(t, sub)
	require.Error(t, sub.Err())
	assert.Contains(t, sub.Err().Error(), "upstream unavailable")
	_, ok := <-sub.Readings()
	assert.False(t, ok)
}

func TestSubscribe_ServerCloseIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub, err := testSubscriber(srv.URL).Subscribe(context.Background(), []string{"t1"}, 5)
	require.NoError(t, err)

	waitDone(t, sub)
	assert.ErrorIs(t, sub.Err(), ErrStreamEnded)
}

func TestSubscribe_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testSubscriber(srv.URL).Subscribe(context.Background(), []string{"t1"}, 5)
	require.Error(t, err)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.True(t, apiErr.BackendDown())
}

func TestSubscribe_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testSubscriber(url).Subscribe(context.Background(), []string{"t1"}, 5)
	require.Error(t, err)
	assert.Equal(t, domain.ClassNetwork, domain.Classify(err))
}

func TestSubscription_CloseStopsDelivery(t *testing.T) {
	srv := sseServer(t, nil, "data: {\"windTurbineId\":\"t1\",\"powerKW\":5}\n\n")

	sub, err := testSubscriber(srv.URL).Subscribe(context.Background(), []string{"t1"}, 5)
	require.NoError(t, err)

	receive(t, sub)
	sub.Close()

	assert.True(t, sub.Finished())
	assert.NoError(t, sub.Err())
	_, ok := <-sub.Readings()
	assert.False(t, ok)
}

func TestSubscription_ContextCancel(t *testing.T) {
	srv := sseServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := testSubscriber(srv.URL).Subscribe(ctx, []string{"t1"}, 5)
	require.NoError(t, err)

	cancel()
	waitDone(t, sub)
	assert.NoError(t, sub.Err())
}
