package model

import (
	"fmt"
	"time"
)

type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
)

type EventType string

const (
	// EventConnected is the first frame on a live channel, sent before the
	// channel is registered for delivery.
	EventConnected EventType = "connected"
	EventMessage   EventType = "message"
)

type Message struct {
	ID         int64       `json:"id"`
	FromUserID string      `json:"from_user_id"`
	ToUserID   string      `json:"to_user_id"`
	Text       string      `json:"text,omitempty"`
	MediaURL   string      `json:"media_url,omitempty"`
	Type       MessageType `json:"message_type"`
	Seen       bool        `json:"seen"`
	CreatedAt  time.Time   `json:"created_at"`
}

type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	ProfilePicture string `json:"profile_picture"`
}

// EnrichedMessage is a message with the sender's profile attached, so a
// receiving client can render it without a second round trip.
type EnrichedMessage struct {
	Message
	From User `json:"from"`
}

// Event is one frame on a live channel.
type Event struct {
	Type    EventType        `json:"type"`
	Message *EnrichedMessage `json:"message,omitempty"`
}

// ConversationSummary is one entry of the recent-conversations view: the
// counterpart, their most recent message and the unseen tally.
type ConversationSummary struct {
	With        User      `json:"with"`
	LastMessage Message   `json:"last_message"`
	UnseenCount int64     `json:"unseen_count"`
	LastUpdated time.Time `json:"last_updated"`
}

// ConversationID returns the shared partition key for a user pair. Both
// directions of a DM map to the same id, so the pair is sorted.
func ConversationID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%s:%s", a, b)
}
