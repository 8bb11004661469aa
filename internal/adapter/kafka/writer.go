// Package kafka fans turbine notifications out across dashboard instances
// through a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/turbine-dashboard/internal/config"
	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/notify"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	headerKind    = "kind"
	headerEventID = "event_id"
)

// messageWriter is the subset of *kafkago.Writer the adapter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces notifications to the notification topic. Messages are
// keyed by turbine id so one turbine's events stay ordered.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured notification topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaNotifyTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Write publishes one notification.
func (w *Writer) Write(ctx context.Context, n domain.Notification) error {
	msg, err := serializeToMessage(n)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a notification into a Kafka message.
func serializeToMessage(n domain.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(n.Turbine.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: headerKind, Value: []byte(n.Kind)},
			{Key: headerEventID, Value: []byte(n.EventID)},
		},
	}, nil
}

// Fanout publishes on the local bus and queues every accepted notification
// for Kafka. Publish never blocks; Run drains the queue.
type Fanout struct {
	local  notify.Publisher
	writer *Writer
	queue  chan domain.Notification
	logger *slog.Logger
}

// NewFanout wraps local so accepted notifications also reach w.
func NewFanout(local notify.Publisher, w *Writer, buffer int, logger *slog.Logger) *Fanout {
	if buffer < 1 {
		buffer = 1
	}
	return &Fanout{local: local, writer: w, queue: make(chan domain.Notification, buffer), logger: logger}
}

// Publish delivers n locally and, when the bus accepted it, queues it for
// the topic.
func (f *Fanout) Publish(n domain.Notification) bool {
	if !f.local.Publish(n) {
		return false
	}
	select {
	case f.queue <- n:
	default:
		f.logger.Warn("kafka fan-out queue full, notification not forwarded",
			"event_id", n.EventID,
			"kind", n.Kind,
		)
	}
	return true
}

// Run writes queued notifications until ctx is cancelled.
func (f *Fanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-f.queue:
			if err := f.writer.Write(ctx, n); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				f.logger.Error("kafka notification write failed", "error", err, "event_id", n.EventID)
			}
		}
	}
}
