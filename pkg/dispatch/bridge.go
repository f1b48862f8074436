package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// EnableBridge switches the dispatcher to topic-based fan-out for
// multi-instance deployments: Deliver publishes to the topic, and every
// instance consumes the whole topic (unique group id) and fans events out
// to its own local registry. Local delivery semantics are unchanged.
func (d *Dispatcher) EnableBridge(brokers []string, topic string) {
	d.producer = &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		// Unique group per instance so every instance sees every event.
		GroupID:     fmt.Sprintf("vibelink-fanout-%d", time.Now().UnixNano()),
		StartOffset: kafka.LastOffset,
		MinBytes:    10e3,
		MaxBytes:    10e6,
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	go func() {
		defer consumer.Close()
		for {
			m, err := consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("bridge consumer error", "err", err)
				return
			}

			var ev struct {
				Message struct {
					ToUserID string `json:"to_user_id"`
				} `json:"message"`
			}
			if err := json.Unmarshal(m.Value, &ev); err != nil {
				slog.Warn("failed to unmarshal bridged event", "err", err)
				continue
			}
			if ev.Message.ToUserID == "" {
				continue
			}
			d.fanOut(ev.Message.ToUserID, m.Value)
		}
	}()

	slog.Info("fan-out bridge enabled", "brokers", brokers, "topic", topic)
}

func (d *Dispatcher) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.producer != nil {
		d.producer.Close()
	}
}
