// Package reconcile keeps a client's view of its conversations consistent
// by combining the live channel with a polling fallback. The live stream is
// a low-latency hint; the summary poll is the eventual-consistency backstop
// that still works when the stream is permanently broken. Both paths are
// deliberate and independent.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/nileshj/vibelink/pkg/model"
)

// API is the request/response surface the reconciler refreshes from.
type API interface {
	RecentConversations(ctx context.Context) ([]model.ConversationSummary, error)
	Conversation(ctx context.Context, otherUserID string) ([]model.Message, error)
}

// Stream is one open live channel. Next blocks until the next event or a
// transport error.
type Stream interface {
	Next() (model.Event, error)
	Close() error
}

// Dialer opens a fresh live channel. Called once at start and again after
// every stream failure.
type Dialer func(ctx context.Context) (Stream, error)

// Notifier surfaces a message that arrived for a conversation the user is
// not currently viewing.
type Notifier func(from model.User, text string)

type Reconciler struct {
	api    API
	dial   Dialer
	notify Notifier

	// Fixed delay before redialing a failed stream. No backoff: a short
	// constant retry plus the poll loop is sufficient here.
	RetryDelay   time.Duration
	PollInterval time.Duration

	mu        sync.Mutex
	viewing   string
	messages  []model.Message
	summaries []model.ConversationSummary
}

func New(api API, dial Dialer, notify Notifier) *Reconciler {
	return &Reconciler{
		api:          api,
		dial:         dial,
		notify:       notify,
		RetryDelay:   2 * time.Second,
		PollInterval: 30 * time.Second,
	}
}

// View opens a conversation: fetches the full history (which marks it seen
// server-side) and makes it the target for live appends.
func (r *Reconciler) View(ctx context.Context, otherUserID string) ([]model.Message, error) {
	history, err := r.api.Conversation(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	// The server returns newest first; the visible list reads oldest first.
	ordered := make([]model.Message, len(history))
	for i, m := range history {
		ordered[len(history)-1-i] = m
	}

	r.mu.Lock()
	r.viewing = otherUserID
	r.messages = ordered
	r.mu.Unlock()
	return ordered, nil
}

// CloseView drops the open conversation; subsequent events notify instead.
func (r *Reconciler) CloseView() {
	r.mu.Lock()
	r.viewing = ""
	r.messages = nil
	r.mu.Unlock()
}

// HandleEvent routes one live event: append when it belongs to the open
// conversation, notify otherwise. Connection markers are ignored.
func (r *Reconciler) HandleEvent(ev model.Event) {
	if ev.Type != model.EventMessage || ev.Message == nil {
		return
	}

	r.mu.Lock()
	if r.viewing != "" && ev.Message.FromUserID == r.viewing {
		r.messages = append(r.messages, ev.Message.Message)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if r.notify != nil {
		r.notify(ev.Message.From, ev.Message.Text)
	}
}

// RefreshSummary re-fetches the recent-conversations summary.
func (r *Reconciler) RefreshSummary(ctx context.Context) error {
	summaries, err := r.api.RecentConversations(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.summaries = summaries
	r.mu.Unlock()
	return nil
}

// Messages returns a copy of the open conversation's visible list.
func (r *Reconciler) Messages() []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Summaries returns a copy of the last fetched summary.
func (r *Reconciler) Summaries() []model.ConversationSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ConversationSummary, len(r.summaries))
	copy(out, r.summaries)
	return out
}

// Run drives both consistency paths until ctx is done: the live stream
// with reconnect-and-refresh on failure, and the independent summary poll.
func (r *Reconciler) Run(ctx context.Context) {
	go r.pollLoop(ctx)

	for ctx.Err() == nil {
		stream, err := r.dial(ctx)
		if err != nil {
			r.sleep(ctx)
			continue
		}

		r.consume(ctx, stream)
		stream.Close()
		if ctx.Err() != nil {
			return
		}

		// The stream just died: a push may have been missed while it was
		// down, so refresh immediately rather than waiting for the poll.
		r.RefreshSummary(ctx)
		r.sleep(ctx)
	}
}

func (r *Reconciler) consume(ctx context.Context, stream Stream) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			stream.Close()
		case <-done:
		}
	}()

	for {
		ev, err := stream.Next()
		if err != nil {
			return
		}
		r.HandleEvent(ev)
	}
}

func (r *Reconciler) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshSummary(ctx)
		}
	}
}

func (r *Reconciler) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.RetryDelay):
	}
}
