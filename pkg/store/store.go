package store

import (
	"context"
	"errors"

	"github.com/nileshj/vibelink/pkg/model"
)

// ErrNotFound is returned for lookups of messages or users that do not
// exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence surface the handlers and the dispatcher consume.
// Scylla implements it; tests substitute an in-memory fake.
type Store interface {
	// CreateMessage persists m and updates both participants'
	// conversation rows plus the recipient's unseen counter.
	CreateMessage(ctx context.Context, m *model.Message) error

	// MessageWithSender re-reads a message with the sender profile
	// attached, for display-ready delivery.
	MessageWithSender(ctx context.Context, convoID string, id int64) (*model.EnrichedMessage, error)

	// Conversation returns the full history between the two users,
	// newest first.
	Conversation(ctx context.Context, userID, otherID string) ([]model.Message, error)

	// MarkSeen flags every unseen message from otherID to viewerID as
	// seen and resets the viewer's unseen counter for that counterpart.
	// Idempotent; returns the number of messages newly flagged.
	MarkSeen(ctx context.Context, viewerID, otherID string) (int, error)

	// RecentConversations returns one summary per counterpart, sorted by
	// last-message recency descending.
	RecentConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)

	SaveUser(ctx context.Context, u model.User) error
	UserByID(ctx context.Context, id string) (model.User, error)
}
