package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nileshj/vibelink/pkg/auth"
	"github.com/nileshj/vibelink/pkg/model"
)

type conversationRequest struct {
	OtherUserID string `json:"other_user_id"`
}

// handleConversation returns the full history with a counterpart, newest
// first, and as a side effect marks that counterpart's unseen messages as
// seen. Fetching twice in a row is safe: the second mark-seen is a no-op.
func (s *server) handleConversation(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req conversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.OtherUserID == "" {
		http.Error(w, "other_user_id is required", http.StatusBadRequest)
		return
	}

	messages, err := s.store.Conversation(r.Context(), claims.UserID, req.OtherUserID)
	if err != nil {
		slog.Error("failed to fetch conversation", "err", err)
		http.Error(w, "Failed to retrieve conversation", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}

	if _, err := s.store.MarkSeen(r.Context(), claims.UserID, req.OtherUserID); err != nil {
		// The fetch succeeded; a failed seen-update is logged, not fatal.
		slog.Warn("failed to mark messages seen", "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

// handleRecent returns the recent-conversations summary: per counterpart,
// the most recent message and the unseen tally, sorted by recency.
func (s *server) handleRecent(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summaries, err := s.store.RecentConversations(r.Context(), claims.UserID)
	if err != nil {
		slog.Error("failed to fetch recent conversations", "err", err)
		http.Error(w, "Failed to retrieve conversations", http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []model.ConversationSummary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}
