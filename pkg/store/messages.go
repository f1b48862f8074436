package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/gocql/gocql"

	"github.com/nileshj/vibelink/pkg/model"
)

// Scylla is the ScyllaDB-backed Store.
type Scylla struct {
	session *Session
}

func NewScylla(session *Session) *Scylla {
	return &Scylla{session: session}
}

var _ Store = (*Scylla)(nil)

func (s *Scylla) CreateMessage(ctx context.Context, m *model.Message) error {
	convoID := model.ConversationID(m.FromUserID, m.ToUserID)

	q := `INSERT INTO messages (convo_id, id, from_user, to_user, text, media_url, message_type, seen, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if err := s.session.Query(q, convoID, m.ID, m.FromUserID, m.ToUserID, m.Text, m.MediaURL, string(m.Type), m.Seen, m.CreatedAt).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	// Conversation rows for both participants, carrying a last-message
	// snapshot so the summary query stays a single-partition read.
	qc := `INSERT INTO user_conversations (user_id, other_user_id, last_updated, last_id, last_from, last_text, last_media_url, last_type) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if err := s.session.Query(qc, m.FromUserID, m.ToUserID, m.CreatedAt, m.ID, m.FromUserID, m.Text, m.MediaURL, string(m.Type)).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("update sender conversation: %w", err)
	}
	if err := s.session.Query(qc, m.ToUserID, m.FromUserID, m.CreatedAt, m.ID, m.FromUserID, m.Text, m.MediaURL, string(m.Type)).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("update recipient conversation: %w", err)
	}

	qCounter := `UPDATE conversation_counters SET unseen_count = unseen_count + 1 WHERE user_id = ? AND other_user_id = ?`
	if err := s.session.Query(qCounter, m.ToUserID, m.FromUserID).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("increment unseen count: %w", err)
	}
	return nil
}

func (s *Scylla) MessageWithSender(ctx context.Context, convoID string, id int64) (*model.EnrichedMessage, error) {
	var m model.Message
	var mtype string
	q := `SELECT id, from_user, to_user, text, media_url, message_type, seen, created_at FROM messages WHERE convo_id = ? AND id = ?`
	err := s.session.Query(q, convoID, id).WithContext(ctx).
		Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Text, &m.MediaURL, &mtype, &m.Seen, &m.CreatedAt)
	if err == gocql.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	m.Type = model.MessageType(mtype)

	from, err := s.UserByID(ctx, m.FromUserID)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	if from.ID == "" {
		from.ID = m.FromUserID
	}
	return &model.EnrichedMessage{Message: m, From: from}, nil
}

func (s *Scylla) Conversation(ctx context.Context, userID, otherID string) ([]model.Message, error) {
	convoID := model.ConversationID(userID, otherID)
	iter := s.session.Query(
		`SELECT id, from_user, to_user, text, media_url, message_type, seen, created_at FROM messages WHERE convo_id = ?`,
		convoID).WithContext(ctx).Iter()

	var messages []model.Message
	var m model.Message
	var mtype string
	for iter.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Text, &m.MediaURL, &mtype, &m.Seen, &m.CreatedAt) {
		m.Type = model.MessageType(mtype)
		messages = append(messages, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func (s *Scylla) MarkSeen(ctx context.Context, viewerID, otherID string) (int, error) {
	convoID := model.ConversationID(viewerID, otherID)

	// The partition is clustered by id, not by seen, so unseen rows are
	// filtered client-side while scanning.
	iter := s.session.Query(
		`SELECT id, from_user, to_user, seen FROM messages WHERE convo_id = ?`,
		convoID).WithContext(ctx).Iter()

	var unseen []int64
	var id int64
	var from, to string
	var seen bool
	for iter.Scan(&id, &from, &to, &seen) {
		if from == otherID && to == viewerID && !seen {
			unseen = append(unseen, id)
		}
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("scan conversation: %w", err)
	}

	for _, id := range unseen {
		q := `UPDATE messages SET seen = true WHERE convo_id = ? AND id = ?`
		if err := s.session.Query(q, convoID, id).WithContext(ctx).Exec(); err != nil {
			return 0, fmt.Errorf("mark message seen: %w", err)
		}
	}

	// Counter reset is deletion; in ScyllaDB counters that is the way.
	q := `DELETE FROM conversation_counters WHERE user_id = ? AND other_user_id = ?`
	if err := s.session.Query(q, viewerID, otherID).WithContext(ctx).Exec(); err != nil {
		return 0, fmt.Errorf("reset unseen count: %w", err)
	}
	return len(unseen), nil
}

func (s *Scylla) RecentConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	iter := s.session.Query(
		`SELECT other_user_id, last_updated, last_id, last_from, last_text, last_media_url, last_type FROM user_conversations WHERE user_id = ?`,
		userID).WithContext(ctx).Iter()

	var summaries []model.ConversationSummary
	var c model.ConversationSummary
	var otherID, lastFrom, lastText, lastMedia, lastType string
	for iter.Scan(&otherID, &c.LastUpdated, &c.LastMessage.ID, &lastFrom, &lastText, &lastMedia, &lastType) {
		c.LastMessage.FromUserID = lastFrom
		c.LastMessage.Text = lastText
		c.LastMessage.MediaURL = lastMedia
		c.LastMessage.Type = model.MessageType(lastType)
		c.LastMessage.CreatedAt = c.LastUpdated
		if lastFrom == userID {
			c.LastMessage.ToUserID = otherID
		} else {
			c.LastMessage.ToUserID = userID
		}

		var count int64
		if err := s.session.Query(
			`SELECT unseen_count FROM conversation_counters WHERE user_id = ? AND other_user_id = ?`,
			userID, otherID).WithContext(ctx).Scan(&count); err == nil {
			c.UnseenCount = count
		} else {
			c.UnseenCount = 0
		}

		with, err := s.UserByID(ctx, otherID)
		if err != nil && err != ErrNotFound {
			return nil, err
		}
		if with.ID == "" {
			with.ID = otherID
		}
		c.With = with
		summaries = append(summaries, c)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
	})
	return summaries, nil
}
