package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
)

func post(base, path, token string, body map[string]string) []byte {
	reqBody, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, base+path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("POST %s: %s: %s", path, resp.Status, out)
	}
	return out
}

func get(base, path, token string) []byte {
	req, _ := http.NewRequest(http.MethodGet, base+path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("GET %s: %s: %s", path, resp.Status, out)
	}
	return out
}

func login(base, userID string) string {
	out := post(base, "/login", "", map[string]string{"user_id": userID, "username": userID})
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		log.Fatal(err)
	}
	return resp.Token
}

func main() {
	base := flag.String("api", "http://localhost:8080", "server address")
	flag.Parse()

	alice := login(*base, "alice")
	bob := login(*base, "bob")

	sent := post(*base, "/messages/send", alice, map[string]string{"to_user_id": "bob", "text": "hello from verify_api"})
	fmt.Printf("sent: %s\n", sent)

	convo := post(*base, "/messages/conversation", bob, map[string]string{"other_user_id": "alice"})
	fmt.Printf("bob's conversation with alice: %s\n", convo)

	recent := get(*base, "/messages/recent", bob)
	fmt.Printf("bob's recent conversations: %s\n", recent)
}
