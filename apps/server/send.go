package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nileshj/vibelink/pkg/auth"
	"github.com/nileshj/vibelink/pkg/metrics"
	"github.com/nileshj/vibelink/pkg/model"
)

const maxUploadBytes = 10 << 20

type sendRequest struct {
	ToUserID string `json:"to_user_id"`
	Text     string `json:"text"`
}

// handleSend accepts a message as JSON or as a multipart form with an
// optional image attachment, persists it, responds with the created record
// and then dispatches it to the recipient's live channels. Dispatch runs
// after the durability boundary and never fails the request.
func (s *server) handleSend(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req sendRequest
	var imageName string
	var imageData []byte

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "Invalid form body", http.StatusBadRequest)
			return
		}
		req.ToUserID = r.FormValue("to_user_id")
		req.Text = r.FormValue("text")

		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
			if err != nil {
				http.Error(w, "Failed to read attachment", http.StatusBadRequest)
				return
			}
			imageName = header.Filename
			imageData = data
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	if req.ToUserID == "" {
		http.Error(w, "to_user_id is required", http.StatusBadRequest)
		return
	}
	if req.Text == "" && imageData == nil {
		http.Error(w, "message text or image is required", http.StatusBadRequest)
		return
	}

	m := &model.Message{
		ID:         s.ids.Generate(),
		FromUserID: claims.UserID,
		ToUserID:   req.ToUserID,
		Text:       req.Text,
		Type:       model.TypeText,
		CreatedAt:  time.Now().UTC(),
	}

	if imageData != nil {
		if s.uploader == nil {
			http.Error(w, "attachments are not enabled", http.StatusBadRequest)
			return
		}
		url, err := s.uploader.Upload(r.Context(), imageName, imageData)
		if err != nil {
			slog.Warn("media upload failed", "err", err)
			http.Error(w, "Failed to store attachment", http.StatusBadGateway)
			return
		}
		m.MediaURL = url
		m.Type = model.TypeImage
	}

	if err := s.store.CreateMessage(r.Context(), m); err != nil {
		slog.Error("failed to persist message", "err", err)
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}
	metrics.MessagesSent.Inc()

	// The message is durable; the live push is a fire-and-forget hint.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.dispatcher.Deliver(ctx, m)
		if body, err := json.Marshal(m); err == nil {
			s.jobs.Emit(ctx, "message.sent", body)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}
