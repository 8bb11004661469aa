package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/config"
	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/notify"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// retryDelay is the pause after a failed fetch.
const retryDelay = time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// Reader consumes the notification topic into the local bus. Every instance
// joins its own consumer group so each one sees every notification.
type Reader struct {
	reader messageReader
	bus    notify.Publisher
	logger *slog.Logger
}

// NewReader creates a consumer starting at the newest offset.
func NewReader(cfg *config.Config, bus notify.Publisher, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaNotifyTopic,
		GroupID:     cfg.KafkaGroupID + "-" + uuid.NewString(),
		StartOffset: kafkago.LastOffset,
		MaxWait:     time.Second,
	})
	return &Reader{reader: r, bus: bus, logger: logger}
}

// Run republishes consumed notifications until ctx is cancelled. Undecodable
// messages are skipped; the bus drops ones this instance already saw.
func (r *Reader) Run(ctx context.Context) error {
	r.logger.Info("kafka notification reader started")
	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("kafka read failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}

		n, err := mapMessageToNotification(msg)
		if err != nil {
			r.logger.Warn("skipping undecodable notification",
				"error", err,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			continue
		}
		r.bus.Publish(n)
	}
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToNotification decodes a message value. The kind and event id
// headers fill fields the value left empty.
func mapMessageToNotification(msg kafkago.Message) (domain.Notification, error) {
	var n domain.Notification
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		return domain.Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	for _, h := range msg.Headers {
		switch h.Key {
		case headerKind:
			if n.Kind == "" {
				n.Kind = domain.NotificationKind(h.Value)
			}
		case headerEventID:
			if n.EventID == "" {
				n.EventID = string(h.Value)
			}
		}
	}
	if n.Turbine.ID == "" {
		n.Turbine.ID = string(msg.Key)
	}
	if err := n.Validate(); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}
