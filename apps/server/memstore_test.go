package main

import (
	"context"
	"sort"
	"sync"

	"github.com/nileshj/vibelink/pkg/model"
	"github.com/nileshj/vibelink/pkg/store"
)

// memStore implements store.Store in memory for handler tests.
type memStore struct {
	mu       sync.Mutex
	messages map[string][]model.Message // convo id -> messages
	users    map[string]model.User
	counters map[string]map[string]int64 // user -> counterpart -> unseen
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		messages: map[string][]model.Message{},
		users:    map[string]model.User{},
		counters: map[string]map[string]int64{},
	}
}

func (s *memStore) CreateMessage(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	convoID := model.ConversationID(m.FromUserID, m.ToUserID)
	s.messages[convoID] = append(s.messages[convoID], *m)
	if s.counters[m.ToUserID] == nil {
		s.counters[m.ToUserID] = map[string]int64{}
	}
	s.counters[m.ToUserID][m.FromUserID]++
	return nil
}

func (s *memStore) MessageWithSender(_ context.Context, convoID string, id int64) (*model.EnrichedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages[convoID] {
		if m.ID == id {
			from := s.users[m.FromUserID]
			if from.ID == "" {
				from.ID = m.FromUserID
			}
			return &model.EnrichedMessage{Message: m, From: from}, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memStore) Conversation(_ context.Context, userID, otherID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	convoID := model.ConversationID(userID, otherID)
	out := make([]model.Message, len(s.messages[convoID]))
	copy(out, s.messages[convoID])
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) MarkSeen(_ context.Context, viewerID, otherID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	convoID := model.ConversationID(viewerID, otherID)
	flagged := 0
	list := s.messages[convoID]
	for i := range list {
		if list[i].FromUserID == otherID && list[i].ToUserID == viewerID && !list[i].Seen {
			list[i].Seen = true
			flagged++
		}
	}
	if s.counters[viewerID] != nil {
		delete(s.counters[viewerID], otherID)
	}
	return flagged, nil
}

func (s *memStore) RecentConversations(_ context.Context, userID string) ([]model.ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := map[string]model.Message{}
	for _, list := range s.messages {
		for _, m := range list {
			var counterpart string
			switch userID {
			case m.FromUserID:
				counterpart = m.ToUserID
			case m.ToUserID:
				counterpart = m.FromUserID
			default:
				continue
			}
			if prev, ok := latest[counterpart]; !ok || m.ID > prev.ID {
				latest[counterpart] = m
			}
		}
	}

	var out []model.ConversationSummary
	for counterpart, last := range latest {
		with := s.users[counterpart]
		if with.ID == "" {
			with.ID = counterpart
		}
		out = append(out, model.ConversationSummary{
			With:        with,
			LastMessage: last,
			UnseenCount: s.counters[userID][counterpart],
			LastUpdated: last.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessage.ID > out[j].LastMessage.ID })
	return out, nil
}

func (s *memStore) SaveUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *memStore) UserByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return u, nil
}
