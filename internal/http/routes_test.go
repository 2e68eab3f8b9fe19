package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"learnjs_backend/internal/config"
	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/http/handlers"
	"learnjs_backend/internal/repository/memory"
	"learnjs_backend/internal/service"
	"learnjs_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type apiEnv struct {
	ctx    context.Context
	store  *memory.Store
	router *gin.Engine
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service.InitJWT("routes-secret", time.Hour)

	store := memory.New()
	ledger := service.NewLedgerService(store)
	hub := ws.NewHub()
	ledger.SetNotifier(hub)
	gate := service.NewLevelGate(store, ledger)
	levels := service.NewLevelService(store, gate, nil)
	referrals := service.NewReferralService(store, ledger, "https://learnjs.test")
	audit := service.NewAuditService(store)
	accounts := service.NewAccountService(store, ledger, referrals, audit)
	accounts.SetHashCost(bcrypt.MinCost)

	cfg := &config.Config{
		AppVersion:       "test",
		APIRateLimit:     10000,
		APIRateWindow:    time.Minute,
		AuthRateLimit:    10000,
		AuthRateWindow:   time.Minute,
		SubmitRateLimit:  10000,
		SubmitRateWindow: time.Minute,
	}

	r := gin.New()
	RegisterRoutes(r, Deps{
		Config: cfg,
		Store:  store,
		Hub:    hub,
		Services: handlers.Services{
			Accounts:  accounts,
			Ledger:    ledger,
			Gate:      gate,
			Levels:    levels,
			Progress:  service.NewProgressService(store, ledger, gate),
			Referrals: referrals,
			Admin:     service.NewAdminService(store, ledger, referrals, levels, audit),
			Audit:     audit,
			Reconcile: service.NewReconcileService(store),
		},
	})
	return &apiEnv{ctx: context.Background(), store: store, router: r}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, out
}

// signup registers an account and returns its id and token.
func (e *apiEnv) signup(t *testing.T, email, code string) (int64, string) {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name":          "User",
		"email":         email,
		"password":      "password123",
		"referral_code": code,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: %d %v", email, status, body)
	}
	user := body["user"].(map[string]any)
	return int64(user["id"].(float64)), body["token"].(string)
}

// setBalance moves a balance directly in storage.
func (e *apiEnv) setBalance(t *testing.T, userID, coins int64) {
	t.Helper()
	u, err := e.store.Repos().Users.GetByID(e.ctx, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if _, err := e.store.Repos().Users.AddCoins(e.ctx, userID, coins-u.Coins); err != nil {
		t.Fatalf("set balance: %v", err)
	}
}

func (e *apiEnv) level(t *testing.T, n int) int64 {
	t.Helper()
	l := &domain.Level{Number: n, Title: "Level " + strconv.Itoa(n), IsActive: true}
	if err := l.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := e.store.Repos().Levels.Upsert(e.ctx, l); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return l.ID
}

func TestSignupAndLogin(t *testing.T) {
	e := newAPI(t)
	_, token := e.signup(t, "alice@example.com", "")

	status, me := e.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me: %d %v", status, me)
	}
	if me["coins"].(float64) != 25 || len(me["unlocked_levels"].([]any)) != 10 {
		t.Fatalf("unexpected new account %v", me)
	}
	if _, ok := me["password_hash"]; ok {
		t.Fatalf("password hash leaked")
	}

	status, body := e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "password123"})
	if status != http.StatusOK || body["token"] == "" {
		t.Fatalf("login: %d %v", status, body)
	}
	status, body = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong-pass"})
	if status != http.StatusUnauthorized || body["code"] != "invalid_credentials" {
		t.Fatalf("bad login: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": "A", "email": "alice@example.com", "password": "password123"})
	if status != http.StatusConflict || body["code"] != "email_taken" {
		t.Fatalf("duplicate: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPost, "/api/v1/auth/verify", "", gin.H{"token": token})
	if status != http.StatusOK || body["valid"] != true {
		t.Fatalf("verify: %d %v", status, body)
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	e := newAPI(t)
	status, body := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "nope", "password": "short"})
	if status != http.StatusBadRequest || body["code"] != "validation_error" {
		t.Fatalf("expected validation error, got %d %v", status, body)
	}
	fields := body["fields"].(map[string]any)
	for _, f := range []string{"name", "email", "password"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing field error for %s: %v", f, fields)
		}
	}
}

func TestUnlockLevelFlow(t *testing.T) {
	e := newAPI(t)
	l12 := e.level(t, 12)
	l13 := e.level(t, 13)

	rich, richToken := e.signup(t, "alice@example.com", "")
	e.setBalance(t, rich, 100)

	status, body := e.do(t, http.MethodPost, "/api/v1/levels/"+strconv.FormatInt(l12, 10)+"/unlock", richToken, nil)
	if status != http.StatusOK {
		t.Fatalf("unlock: %d %v", status, body)
	}
	if body["balance"].(float64) != 80 || body["current_level"].(float64) != 12 {
		t.Fatalf("unexpected unlock result %v", body)
	}

	status, body = e.do(t, http.MethodPost, "/api/v1/users/unlock-level/"+strconv.FormatInt(l12, 10), richToken, nil)
	if status != http.StatusConflict || body["code"] != "already_unlocked" {
		t.Fatalf("repeat unlock: %d %v", status, body)
	}

	poor, poorToken := e.signup(t, "bob@example.com", "")
	e.setBalance(t, poor, 10)
	status, body = e.do(t, http.MethodPost, "/api/v1/levels/"+strconv.FormatInt(l13, 10)+"/unlock", poorToken, nil)
	if status != http.StatusBadRequest || body["code"] != "insufficient_coins" {
		t.Fatalf("poor unlock: %d %v", status, body)
	}
	if body["required"].(float64) != 30 || body["shortfall"].(float64) != 20 {
		t.Fatalf("unexpected shortfall %v", body)
	}

	status, body = e.do(t, http.MethodGet, "/api/v1/levels/number/13", poorToken, nil)
	if status != http.StatusForbidden || body["code"] != "level_locked" {
		t.Fatalf("locked level: %d %v", status, body)
	}
	status, _ = e.do(t, http.MethodGet, "/api/v1/levels/number/12", richToken, nil)
	if status != http.StatusOK {
		t.Fatalf("unlocked level: %d", status)
	}
}

func TestTransferCoins(t *testing.T) {
	e := newAPI(t)
	a, aToken := e.signup(t, "alice@example.com", "")
	b, bToken := e.signup(t, "bob@example.com", "")
	e.setBalance(t, a, 50)
	e.setBalance(t, b, 5)

	status, body := e.do(t, http.MethodPost, "/api/v1/coins/transfer", aToken, gin.H{"to_email": "bob@example.com", "amount": 30})
	if status != http.StatusOK || body["balance"].(float64) != 20 {
		t.Fatalf("transfer: %d %v", status, body)
	}
	status, body = e.do(t, http.MethodGet, "/api/v1/coins/balance", bToken, nil)
	if status != http.StatusOK || body["coins"].(float64) != 35 {
		t.Fatalf("recipient balance: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPost, "/api/v1/coins/transfer", aToken, gin.H{"to_email": "bob@example.com", "amount": 21})
	if status != http.StatusBadRequest || body["code"] != "insufficient_funds" {
		t.Fatalf("overdraft: %d %v", status, body)
	}
	status, body = e.do(t, http.MethodPost, "/api/v1/coins/transfer", aToken, gin.H{"to_email": "nobody@example.com", "amount": 1})
	if status != http.StatusNotFound {
		t.Fatalf("unknown recipient: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodGet, "/api/v1/coins/transactions", aToken, nil)
	if status != http.StatusOK || len(body["transactions"].([]any)) != 2 {
		t.Fatalf("history: %d %v", status, body)
	}
}

func TestReferralAtSignup(t *testing.T) {
	e := newAPI(t)
	_, aToken := e.signup(t, "alice@example.com", "")
	_, info := e.do(t, http.MethodGet, "/api/v1/referral", aToken, nil)
	code := info["referral_code"].(string)

	_, bToken := e.signup(t, "bob@example.com", code)
	_, me := e.do(t, http.MethodGet, "/api/v1/auth/me", bToken, nil)
	if me["coins"].(float64) != 50 {
		t.Fatalf("referred balance = %v", me["coins"])
	}
	_, me = e.do(t, http.MethodGet, "/api/v1/auth/me", aToken, nil)
	if me["coins"].(float64) != 75 || me["referrals"].(float64) != 1 {
		t.Fatalf("unexpected referrer %v", me)
	}

	status, body := e.do(t, http.MethodPost, "/api/v1/referral/apply", bToken, gin.H{"code": code})
	if status != http.StatusConflict || body["code"] != "already_processed" {
		t.Fatalf("repeat referral: %d %v", status, body)
	}
	status, body = e.do(t, http.MethodPost, "/api/v1/coins/add-referral", aToken, gin.H{"code": code})
	if status != http.StatusBadRequest || body["code"] != "self_referral" {
		t.Fatalf("self referral: %d %v", status, body)
	}
}

func TestAdminRoutes(t *testing.T) {
	e := newAPI(t)
	adminID, adminToken := e.signup(t, "admin@example.com", "")
	userID, userToken := e.signup(t, "alice@example.com", "")

	if status, _ := e.do(t, http.MethodGet, "/api/v1/admin/dashboard", userToken, nil); status != http.StatusForbidden {
		t.Fatalf("non-admin dashboard: %d", status)
	}
	if err := e.store.Repos().Users.SetAdmin(e.ctx, adminID, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}

	status, body := e.do(t, http.MethodGet, "/api/v1/admin/dashboard", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("dashboard: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPost, "/api/v1/admin/add-coins", adminToken, gin.H{"user_id": userID, "amount": 100})
	if status != http.StatusOK || body["balance"].(float64) != 125 {
		t.Fatalf("add coins: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPost, "/api/v1/admin/levels", adminToken, gin.H{"level_number": 15, "title": "Promises"})
	if status != http.StatusOK || body["coins_required"].(float64) != 50 {
		t.Fatalf("save level: %d %v", status, body)
	}
	status, body = e.do(t, http.MethodPost, "/api/v1/admin/levels", adminToken, gin.H{"level_number": 60, "title": "x"})
	if status != http.StatusBadRequest {
		t.Fatalf("invalid level number: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPost, "/api/v1/admin/reconcile", adminToken, nil)
	if status != http.StatusOK || body["checked_users"].(float64) != 2 {
		t.Fatalf("reconcile: %d %v", status, body)
	}
}

func TestPublicLevelsAndHealth(t *testing.T) {
	e := newAPI(t)
	e.level(t, 1)
	e.level(t, 11)

	status, body := e.do(t, http.MethodGet, "/api/v1/levels", "", nil)
	if status != http.StatusOK {
		t.Fatalf("levels: %d %v", status, body)
	}
	levels := body["levels"].([]any)
	if len(levels) != 2 || levels[0].(map[string]any)["is_unlocked"] != true || levels[1].(map[string]any)["is_unlocked"] != false {
		t.Fatalf("unexpected anonymous catalog %v", levels)
	}

	if status, _ := e.do(t, http.MethodGet, "/health", "", nil); status != http.StatusOK {
		t.Fatalf("health: %d", status)
	}
	if status, _ := e.do(t, http.MethodGet, "/api/v1/coins/balance", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("anonymous balance: %d", status)
	}
}
