package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/nileshj/vibelink/pkg/model"
	"github.com/nileshj/vibelink/pkg/reconcile"
)

type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func (c *apiClient) post(path string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.do(req, out)
}

func (c *apiClient) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) RecentConversations(ctx context.Context) ([]model.ConversationSummary, error) {
	var out []model.ConversationSummary
	if err := c.get("/messages/recent", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiClient) Conversation(ctx context.Context, otherUserID string) ([]model.Message, error) {
	var out []model.Message
	if err := c.post("/messages/conversation", map[string]string{"other_user_id": otherUserID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiClient) send(to, text string) (*model.Message, error) {
	var out model.Message
	if err := c.post("/messages/send", map[string]string{"to_user_id": to, "text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// wsStream adapts a websocket connection to reconcile.Stream.
type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Next() (model.Event, error) {
	var ev model.Event
	_, payload, err := s.conn.ReadMessage()
	if err != nil {
		return ev, err
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, err
	}
	return ev, nil
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}

func login(api *apiClient, userID, fullName string) error {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"user_id": userID, "username": userID, "full_name": fullName}
	if err := api.post("/login", body, &resp); err != nil {
		return err
	}
	api.token = resp.Token
	return nil
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "server address")
	userID := flag.String("user", "user1", "user id")
	fullName := flag.String("name", "", "display name")
	flag.Parse()

	api := &apiClient{base: "http://" + *serverAddr, http: http.DefaultClient}

	log.Printf("Logging in as %s...", *userID)
	if err := login(api, *userID, *fullName); err != nil {
		log.Fatal("Login failed: ", err)
	}

	dial := func(ctx context.Context) (reconcile.Stream, error) {
		u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/stream/" + *userID}
		q := u.Query()
		q.Set("token", api.token)
		u.RawQuery = q.Encode()

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			log.Printf("stream dial failed: %v", err)
			return nil, err
		}
		return &wsStream{conn: conn}, nil
	}

	notify := func(from model.User, text string) {
		name := from.FullName
		if name == "" {
			name = from.ID
		}
		fmt.Printf("\r[new message from %s] %s\n> ", name, text)
	}

	rec := reconcile.New(api, dial, notify)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)
	rec.RefreshSummary(ctx)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	viewing := ""
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := scanner.Text()
			switch {
			case text == "":
			case text == "/quit":
				cancel()
				return
			case text == "/recent":
				for _, s := range rec.Summaries() {
					unseen := ""
					if s.UnseenCount > 0 {
						unseen = fmt.Sprintf(" (%d unseen)", s.UnseenCount)
					}
					fmt.Printf("%s: %s%s\n", s.With.ID, s.LastMessage.Text, unseen)
				}
			case strings.HasPrefix(text, "/open "):
				viewing = strings.TrimSpace(strings.TrimPrefix(text, "/open "))
				history, err := rec.View(ctx, viewing)
				if err != nil {
					log.Printf("open failed: %v", err)
					viewing = ""
					break
				}
				for _, m := range history {
					fmt.Printf("%s: %s\n", m.FromUserID, m.Text)
				}
			case viewing == "":
				fmt.Println("open a conversation first: /open <user>")
			default:
				if _, err := api.send(viewing, text); err != nil {
					log.Printf("send failed: %v", err)
				}
			}
			fmt.Print("> ")
		}
	}()

	select {
	case <-interrupt:
		cancel()
	case <-ctx.Done():
	}
}
