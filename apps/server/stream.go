package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/nileshj/vibelink/pkg/auth"
	"github.com/nileshj/vibelink/pkg/metrics"
	"github.com/nileshj/vibelink/pkg/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are discarded, so they never need to be large.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// streamChannel is one open live channel: a websocket connection plus its
// buffered outbound queue. It satisfies registry.Channel.
type streamChannel struct {
	conn *websocket.Conn
	send chan []byte
}

// Deliver hands a payload to the write pump without blocking. A full queue
// means the connection is dead or hopelessly slow; the event is dropped and
// the caller counts it.
func (c *streamChannel) Deliver(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// writePump pumps queued events onto the websocket connection.
func (c *streamChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump exists to observe the close: the stream is one-directional and
// every inbound data frame is discarded. Its exit is the single place this
// channel leaves the registry.
func (s *server) readPump(userID string, ch *streamChannel) {
	defer func() {
		s.registry.Remove(userID, ch)
		metrics.OpenChannels.Dec()
		if len(s.registry.ChannelsFor(userID)) == 0 {
			s.presence.Disconnected(context.Background(), userID)
		}
		ch.conn.Close()
		slog.Info("live channel closed", "user", userID)
	}()
	ch.conn.SetReadLimit(maxMessageSize)
	ch.conn.SetReadDeadline(time.Now().Add(pongWait))
	ch.conn.SetPongHandler(func(string) error { ch.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := ch.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("stream read error", "user", userID, "err", err)
			}
			break
		}
	}
}

// handleStream establishes a live channel for the path user. The first
// frame is a connection-confirmed event, written before the channel joins
// the registry, so a client can tell "registered" from "still connecting".
func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID := mux.Vars(r)["userID"]
	if userID != claims.UserID {
		http.Error(w, "Cannot subscribe to another user's stream", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "err", err)
		return
	}

	confirmation, _ := json.Marshal(model.Event{Type: model.EventConnected})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, confirmation); err != nil {
		conn.Close()
		return
	}

	ch := &streamChannel{conn: conn, send: make(chan []byte, 256)}
	s.registry.Register(userID, ch)
	metrics.OpenChannels.Inc()
	s.presence.Connected(r.Context(), userID)
	slog.Info("live channel opened", "user", userID)

	go ch.writePump()
	go s.readPump(userID, ch)
}
