package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nileshj/vibelink/pkg/metrics"
	"github.com/nileshj/vibelink/pkg/model"
	"github.com/nileshj/vibelink/pkg/registry"
	"github.com/nileshj/vibelink/pkg/store"
)

// Dispatcher pushes persisted messages to the recipient's open live
// channels. Delivery is best-effort and at-most-once: a recipient with no
// open channel observes the message on their next poll or conversation
// fetch, straight from the store.
type Dispatcher struct {
	store    store.Store
	registry *registry.Registry

	// Bridge state; nil when fan-out is in-process only.
	producer *kafka.Writer
	cancel   context.CancelFunc
}

func New(st store.Store, reg *registry.Registry) *Dispatcher {
	return &Dispatcher{store: st, registry: reg}
}

// Deliver is invoked after m is durably persisted. It re-reads the message
// with sender detail attached and fans the event out. Failures are logged
// and swallowed: the triggering request has already succeeded.
func (d *Dispatcher) Deliver(ctx context.Context, m *model.Message) {
	convoID := model.ConversationID(m.FromUserID, m.ToUserID)
	enriched, err := d.store.MessageWithSender(ctx, convoID, m.ID)
	if err != nil {
		slog.Warn("failed to enrich message for delivery", "id", m.ID, "err", err)
		return
	}

	payload, err := json.Marshal(model.Event{Type: model.EventMessage, Message: enriched})
	if err != nil {
		slog.Warn("failed to marshal event", "id", m.ID, "err", err)
		return
	}

	if d.producer != nil {
		err := d.producer.WriteMessages(ctx, kafka.Message{Value: payload, Time: time.Now()})
		if err != nil {
			slog.Warn("failed to publish event, falling back to local fan-out", "err", err)
			d.fanOut(m.ToUserID, payload)
		}
		return
	}

	d.fanOut(m.ToUserID, payload)
}

// fanOut writes payload to every channel in the recipient's current set.
// The set is a snapshot: channels registered after it receive nothing for
// this message, and a concurrent Remove never blocks a write. Writes are
// independent; one dead channel does not stop the others.
func (d *Dispatcher) fanOut(recipient string, payload []byte) {
	for _, ch := range d.registry.ChannelsFor(recipient) {
		if ch.Deliver(payload) {
			metrics.EventsDelivered.Inc()
		} else {
			metrics.EventsDropped.Inc()
		}
	}
}
