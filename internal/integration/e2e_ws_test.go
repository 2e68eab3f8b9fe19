package integration

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"learnjs_backend/internal/config"
	"learnjs_backend/internal/domain"
	httpserver "learnjs_backend/internal/http"
	"learnjs_backend/internal/http/handlers"
	"learnjs_backend/internal/service"
	"learnjs_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestE2E_WS_BalanceEvent(t *testing.T) {
	e := openPostgres(t)

	hub := ws.NewHub()
	e.ledger.SetNotifier(hub)
	levels := service.NewLevelService(e.store, e.gate, nil)
	audit := service.NewAuditService(e.store)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	httpserver.RegisterRoutes(r, httpserver.Deps{
		Config: &config.Config{
			AppVersion:       "it",
			APIRateLimit:     1000,
			APIRateWindow:    time.Minute,
			AuthRateLimit:    1000,
			AuthRateWindow:   time.Minute,
			SubmitRateLimit:  1000,
			SubmitRateWindow: time.Minute,
		},
		Store: e.store,
		Hub:   hub,
		Services: handlers.Services{
			Accounts:  e.accounts,
			Ledger:    e.ledger,
			Gate:      e.gate,
			Levels:    levels,
			Progress:  service.NewProgressService(e.store, e.ledger, e.gate),
			Referrals: e.referrals,
			Admin:     service.NewAdminService(e.store, e.ledger, e.referrals, levels, audit),
			Audit:     audit,
			Reconcile: e.reconcile,
		},
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	sender := e.register(t, "")
	recipient := e.register(t, "")

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?token=" + recipient.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() map[string]any {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}
	if msg := read(); msg["type"] != "ready" {
		t.Fatalf("expected ready, got %v", msg)
	}

	body := strings.NewReader(`{"to_email":"` + recipient.User.Email + `","amount":5}`)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/coins/transfer", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sender.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transfer status %d", resp.StatusCode)
	}

	msg := read()
	if msg["type"] != domain.EventBalance || msg["balance"] != float64(domain.WelcomeBonus+5) {
		t.Fatalf("unexpected event %v", msg)
	}
}
