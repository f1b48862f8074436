package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nileshj/vibelink/pkg/auth"
	"github.com/nileshj/vibelink/pkg/dispatch"
	"github.com/nileshj/vibelink/pkg/model"
	"github.com/nileshj/vibelink/pkg/registry"
	"github.com/nileshj/vibelink/pkg/snowflake"
)

type testEnv struct {
	srv   *httptest.Server
	store *memStore
	app   *server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := newMemStore()
	reg := registry.New()
	ids, err := snowflake.NewNode(1)
	require.NoError(t, err)

	app := &server{
		store:      st,
		registry:   reg,
		dispatcher: dispatch.New(st, reg),
		verifier:   auth.NewVerifier("test_secret"),
		ids:        ids,
	}
	srv := httptest.NewServer(app.routes())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: st, app: app}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.app.verifier.GenerateToken(userID)
	require.NoError(t, err)
	return token
}

func (e *testEnv) post(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) send(t *testing.T, from, to, text string) model.Message {
	t.Helper()
	resp := e.post(t, "/messages/send", e.token(t, from), map[string]string{"to_user_id": to, "text": text})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m model.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func (e *testEnv) conversation(t *testing.T, viewer, other string) []model.Message {
	t.Helper()
	resp := e.post(t, "/messages/conversation", e.token(t, viewer), map[string]string{"other_user_id": other})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var messages []model.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
	return messages
}

func (e *testEnv) recent(t *testing.T, user string) []model.ConversationSummary {
	t.Helper()
	resp := e.get(t, "/messages/recent", e.token(t, user))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summaries []model.ConversationSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	return summaries
}

func TestLoginIssuesToken(t *testing.T) {
	e := newTestEnv(t)
	resp := e.post(t, "/login", "", map[string]string{"user_id": "alice", "full_name": "Alice A"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	claims, err := e.app.verifier.ValidateToken(out.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)

	u, err := e.store.UserByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice A", u.FullName)
}

func TestSendValidation(t *testing.T) {
	e := newTestEnv(t)

	resp := e.post(t, "/messages/send", e.token(t, "alice"), map[string]string{"text": "no recipient"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.post(t, "/messages/send", e.token(t, "alice"), map[string]string{"to_user_id": "bob"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.post(t, "/messages/send", "", map[string]string{"to_user_id": "bob", "text": "hi"})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Failed sends must leave no state behind.
	assert.Empty(t, e.recent(t, "bob"))
}

func TestSendPersistsAndResponds(t *testing.T) {
	e := newTestEnv(t)
	m := e.send(t, "alice", "bob", "hello bob")

	assert.NotZero(t, m.ID)
	assert.Equal(t, "alice", m.FromUserID)
	assert.Equal(t, "bob", m.ToUserID)
	assert.Equal(t, "hello bob", m.Text)
	assert.Equal(t, model.TypeText, m.Type)
	assert.False(t, m.Seen)

	stored := e.conversation(t, "bob", "alice")
	require.Len(t, stored, 1)
	assert.Equal(t, m.ID, stored[0].ID)
}

func TestConversationMarksSeenIdempotently(t *testing.T) {
	e := newTestEnv(t)
	e.send(t, "alice", "bob", "one")
	e.send(t, "alice", "bob", "two")

	// First fetch returns the messages as they were and flags them seen.
	first := e.conversation(t, "bob", "alice")
	require.Len(t, first, 2)

	second := e.conversation(t, "bob", "alice")
	require.Len(t, second, 2)
	for _, m := range second {
		assert.True(t, m.Seen, "message %d should be seen after the first fetch", m.ID)
	}

	flagged, err := e.store.MarkSeen(context.Background(), "bob", "alice")
	require.NoError(t, err)
	assert.Zero(t, flagged, "repeat mark-seen must change nothing")
}

func TestRecentConversationsSummary(t *testing.T) {
	e := newTestEnv(t)

	// 3 messages from xavier, one of them after bob last viewed.
	e.send(t, "xavier", "bob", "x1")
	e.send(t, "xavier", "bob", "x2")
	e.conversation(t, "bob", "xavier")
	lastX := e.send(t, "xavier", "bob", "x3")

	// 2 messages from yara, all viewed.
	e.send(t, "yara", "bob", "y1")
	lastY := e.send(t, "yara", "bob", "y2")
	e.conversation(t, "bob", "yara")

	summaries := e.recent(t, "bob")
	require.Len(t, summaries, 2)

	byUser := map[string]model.ConversationSummary{}
	for _, s := range summaries {
		byUser[s.With.ID] = s
	}

	x := byUser["xavier"]
	assert.Equal(t, lastX.ID, x.LastMessage.ID)
	assert.EqualValues(t, 1, x.UnseenCount)

	y := byUser["yara"]
	assert.Equal(t, lastY.ID, y.LastMessage.ID)
	assert.EqualValues(t, 0, y.UnseenCount)

	// Sorted by recency: y2 was sent after x3, so yara leads.
	assert.Equal(t, "yara", summaries[0].With.ID)
}

func dialStream(t *testing.T, e *testEnv, userID, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/stream/" + userID + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) model.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev model.Event
	require.NoError(t, json.Unmarshal(payload, &ev))
	return ev
}

func TestStreamConfirmsBeforeDelivering(t *testing.T) {
	e := newTestEnv(t)
	conn := dialStream(t, e, "bob", e.token(t, "bob"))

	ev := readEvent(t, conn)
	assert.Equal(t, model.EventConnected, ev.Type)
	assert.Nil(t, ev.Message)
}

func TestStreamRejectsOtherUsersToken(t *testing.T) {
	e := newTestEnv(t)
	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/stream/bob?token=" + e.token(t, "mallory")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEndToEndDelivery(t *testing.T) {
	e := newTestEnv(t)

	// Sender profile, so the delivered event is display-ready.
	resp := e.post(t, "/login", "", map[string]string{"user_id": "vera", "full_name": "Vera V", "profile_picture": "https://cdn.example/vera.webp"})
	resp.Body.Close()

	phone := dialStream(t, e, "bob", e.token(t, "bob"))
	laptop := dialStream(t, e, "bob", e.token(t, "bob"))
	require.Equal(t, model.EventConnected, readEvent(t, phone).Type)
	require.Equal(t, model.EventConnected, readEvent(t, laptop).Type)

	sent := e.send(t, "vera", "bob", "hi")

	for name, conn := range map[string]*websocket.Conn{"phone": phone, "laptop": laptop} {
		ev := readEvent(t, conn)
		require.Equal(t, model.EventMessage, ev.Type, "%s: wrong event type", name)
		require.NotNil(t, ev.Message, name)
		assert.Equal(t, sent.ID, ev.Message.ID, name)
		assert.Equal(t, "hi", ev.Message.Text, name)
		assert.Equal(t, "Vera V", ev.Message.From.FullName, name)
		assert.Equal(t, "https://cdn.example/vera.webp", ev.Message.From.ProfilePicture, name)
	}
}

func TestClosedChannelLeavesSiblingWorking(t *testing.T) {
	e := newTestEnv(t)

	phone := dialStream(t, e, "bob", e.token(t, "bob"))
	laptop := dialStream(t, e, "bob", e.token(t, "bob"))
	require.Equal(t, model.EventConnected, readEvent(t, phone).Type)
	require.Equal(t, model.EventConnected, readEvent(t, laptop).Type)

	phone.Close()
	// Give the server a moment to observe the close and deregister.
	require.Eventually(t, func() bool {
		return len(e.app.registry.ChannelsFor("bob")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	e.send(t, "alice", "bob", "still delivered")

	ev := readEvent(t, laptop)
	require.Equal(t, model.EventMessage, ev.Type)
	assert.Equal(t, "still delivered", ev.Message.Text)
}

func TestOfflineRecipientSeesMessageOnNextFetch(t *testing.T) {
	e := newTestEnv(t)
	e.send(t, "alice", "bob", "while you were away")

	messages := e.conversation(t, "bob", "alice")
	require.Len(t, messages, 1)
	assert.Equal(t, "while you were away", messages[0].Text)

	// The fetch marked it seen, so the summary tally is back to zero.
	summaries := e.recent(t, "bob")
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 0, summaries[0].UnseenCount)
}
