package main

import (
	"encoding/json"
	"net/http"

	"github.com/nileshj/vibelink/pkg/model"
)

type loginRequest struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	ProfilePicture string `json:"profile_picture"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin issues a token and upserts the caller's profile. It stands in
// for the hosted identity provider in development; in production the
// provider signs tokens with the shared secret and this route is disabled
// at the edge.
func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if req.Username != "" || req.FullName != "" || req.ProfilePicture != "" {
		u := model.User{
			ID:             req.UserID,
			Username:       req.Username,
			FullName:       req.FullName,
			ProfilePicture: req.ProfilePicture,
		}
		if err := s.store.SaveUser(r.Context(), u); err != nil {
			http.Error(w, "Failed to save profile", http.StatusInternalServerError)
			return
		}
	}

	token, err := s.verifier.GenerateToken(req.UserID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{Token: token})
}
