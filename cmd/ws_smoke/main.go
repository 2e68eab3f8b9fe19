package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ws_smoke registers two accounts against a running server, opens the
// recipient's websocket and checks that a transfer arrives as a balance event.
func main() {
	base := flag.String("url", "http://127.0.0.1:8080", "server base URL")
	flag.Parse()
	logger.Init(os.Getenv("LOG_LEVEL"), false)

	suffix := uuid.NewString()[:8]
	_, senderToken := register(*base, "smoke-a-"+suffix+"@example.com")
	recipientEmail := "smoke-b-" + suffix + "@example.com"
	recipientID, recipientToken := register(*base, recipientEmail)

	wsURL := "ws" + strings.TrimPrefix(*base, "http") + "/ws?token=" + url.QueryEscape(recipientToken)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		logger.Fatal("dial websocket", "error", err)
	}
	defer conn.Close()

	if msg := read(conn); msg["type"] != "ready" {
		logger.Fatal("expected ready", "got", msg)
	}

	post(*base+"/api/v1/coins/transfer", senderToken, map[string]any{"to_email": recipientEmail, "amount": 5, "note": "smoke"}, nil)

	msg := read(conn)
	if msg["type"] != domain.EventBalance || msg["user_id"] != float64(recipientID) {
		logger.Fatal("unexpected event", "got", msg)
	}
	fmt.Printf("ok: recipient balance %v\n", msg["balance"])
}

func register(base, email string) (int64, string) {
	var res struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	post(base+"/api/v1/auth/register", "", map[string]any{"name": "Smoke", "email": email, "password": "smoke-pass-1"}, &res)
	return res.User.ID, res.Token
}

func post(url, token string, body any, out any) {
	b, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		logger.Fatal("build request", "error", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Fatal("request failed", "url", url, "error", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		logger.Fatal("unexpected status", "url", url, "status", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			logger.Fatal("decode response", "error", err)
		}
	}
}

func read(conn *websocket.Conn) map[string]any {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		logger.Fatal("read websocket", "error", err)
	}
	return msg
}
