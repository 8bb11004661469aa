package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/notify"
	"github.com/couchcryptid/turbine-dashboard/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockWriter struct {
	mu   sync.Mutex
	msgs []kafkago.Message
	err  error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error { return nil }

func (m *mockWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

type mockReader struct {
	msgs []kafkago.Message
	errs []error
}

func (m *mockReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return kafkago.Message{}, err
	}
	if len(m.msgs) > 0 {
		msg := m.msgs[0]
		m.msgs = m.msgs[1:]
		return msg, nil
	}
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (m *mockReader) Close() error { return nil }

func testBus() *notify.Bus {
	return notify.NewBus(16, discardLogger(), observability.NewMetricsForTesting())
}

func receive(t *testing.T, sub *notify.Subscription) domain.Notification {
	t.Helper()
	select {
	case n := <-sub.C():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return domain.Notification{}
	}
}

func TestSerializeToMessage(t *testing.T) {
	n := domain.Notification{
		EventID: "evt-1",
		Kind:    domain.TurbineUpdated,
		Turbine: domain.TurbinePayload{ID: "t1", Name: "North 1", Active: true},
	}

	msg, err := serializeToMessage(n)
	require.NoError(t, err)

	assert.Equal(t, []byte("t1"), msg.Key)
	assert.JSONEq(t, `{"eventId":"evt-1","kind":"turbine:updated","turbine":{"id":"t1","name":"North 1","active":true}}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("turbine:updated"), msg.Headers[0].Value)
	assert.Equal(t, "event_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("evt-1"), msg.Headers[1].Value)
}

func TestMapMessageToNotification(t *testing.T) {
	msg := kafkago.Message{
		Key:   []byte("t1"),
		Value: []byte(`{"turbine":{"name":"North 1"}}`),
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte("turbine:created")},
			{Key: "event_id", Value: []byte("evt-9")},
		},
	}

	n, err := mapMessageToNotification(msg)
	require.NoError(t, err)

	assert.Equal(t, domain.TurbineCreated, n.Kind)
	assert.Equal(t, "evt-9", n.EventID)
	assert.Equal(t, "t1", n.Turbine.ID)
	assert.Equal(t, "North 1", n.Turbine.Name)
}

func TestMapMessageToNotification_Invalid(t *testing.T) {
	_, err := mapMessageToNotification(kafkago.Message{Value: []byte("not-json{{{")})
	require.Error(t, err)

	_, err = mapMessageToNotification(kafkago.Message{Value: []byte(`{"kind":"turbine:exploded","turbine":{"id":"t1"}}`)})
	require.Error(t, err)
}

func TestFanout_PublishesLocallyAndForwards(t *testing.T) {
	bus := testBus()
	sub := bus.Subscribe("test", 4)
	mw := &mockWriter{}
	f := NewFanout(bus, &Writer{writer: mw, logger: discardLogger()}, 4, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	n := domain.NewNotification(domain.TurbineDeleted, domain.TurbinePayload{ID: "t1"})
	assert.True(t, f.Publish(n))
	assert.Equal(t, n.EventID, receive(t, sub).EventID)

	require.Eventually(t, func() bool { return mw.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	// A duplicate is rejected by the bus and never forwarded.
	assert.False(t, f.Publish(n))

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, mw.count())
}

func TestFanout_WriteErrorKeepsRunning(t *testing.T) {
	mw := &mockWriter{err: errors.New("broker unavailable")}
	f := NewFanout(testBus(), &Writer{writer: mw, logger: discardLogger()}, 4, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	assert.True(t, f.Publish(domain.NewNotification(domain.TurbineCreated, domain.TurbinePayload{ID: "t1"})))
	assert.True(t, f.Publish(domain.NewNotification(domain.TurbineCreated, domain.TurbinePayload{ID: "t2"})))

	cancel()
	require.NoError(t, <-done)
}

func TestReader_RepublishesIntoBus(t *testing.T) {
	bus := testBus()
	sub := bus.Subscribe("test", 4)

	good, err := serializeToMessage(domain.Notification{EventID: "evt-1", Kind: domain.TurbineCreated, Turbine: domain.TurbinePayload{ID: "t1"}})
	require.NoError(t, err)
	mr := &mockReader{
		errs: []error{errors.New("leader not available")},
		msgs: []kafkago.Message{{Value: []byte("garbage")}, good, good},
	}
	r := &Reader{reader: mr, bus: bus, logger: discardLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	n := receive(t, sub)
	assert.Equal(t, "evt-1", n.EventID)
	assert.Equal(t, domain.TurbineCreated, n.Kind)

	select {
	case dup := <-sub.C():
		t.Fatalf("duplicate delivered: %+v", dup)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}
