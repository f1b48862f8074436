package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// handleOnline lists the user ids with at least one open live channel,
// across all instances sharing the Redis set.
func (s *server) handleOnline(w http.ResponseWriter, r *http.Request) {
	users, err := s.presence.Online(r.Context())
	if err != nil {
		slog.Error("failed to fetch presence", "err", err)
		http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}
