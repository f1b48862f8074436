package jobs

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

const actionHeader = "x-action"

// Emitter submits fire-and-forget events to the background-job platform
// (notification digests, cleanup workflows). A nil Emitter does nothing,
// for deployments without a broker.
type Emitter struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func Connect(url, queue string) (*Emitter, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	slog.Info("connected to job broker", "queue", queue)
	return &Emitter{conn: conn, channel: ch, queue: q}, nil
}

// Emit publishes one event. Best-effort: failures are logged, never
// propagated, since the triggering operation has already succeeded.
func (e *Emitter) Emit(ctx context.Context, action string, body []byte) {
	if e == nil {
		return
	}
	err := e.channel.PublishWithContext(ctx, "", e.queue.Name, false, false, amqp.Publishing{
		ContentType: "application/json",
		Headers:     amqp.Table{actionHeader: action},
		Body:        body,
	})
	if err != nil {
		slog.Warn("failed to emit job event", "action", action, "err", err)
	}
}

func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.channel.Close()
	e.conn.Close()
}
