package service

import (
	"errors"
	"regexp"
	"testing"

	"learnjs_backend/internal/domain"
)

func TestRegisterGrantsWelcomeBonus(t *testing.T) {
	e := newEnv(t)

	res := e.register(t, "Alice@Example.com", "")
	u := res.User
	if u.Coins != domain.WelcomeBonus || u.Email != "alice@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}
	if len(u.UnlockedLevels) != domain.FreeLevels || u.UnlockedLevels[0] != 1 || u.UnlockedLevels[9] != 10 {
		t.Fatalf("unexpected unlocked levels %v", u.UnlockedLevels)
	}
	if !regexp.MustCompile(`^[A-Z0-9]{6}$`).MatchString(u.ReferralCode) {
		t.Fatalf("bad referral code %q", u.ReferralCode)
	}

	claims, err := ParseJWT(res.Token)
	if err != nil || claims.UserID != u.ID || claims.IsAdmin {
		t.Fatalf("unexpected claims %+v, %v", claims, err)
	}

	hist, _ := e.ledger.History(e.ctx, u.ID, 0)
	if len(hist) != 1 || hist[0].Type != domain.TransactionReward || hist[0].Amount != domain.WelcomeBonus {
		t.Fatalf("welcome bonus not recorded: %+v", hist)
	}
}

func TestRegisterWithReferralCode(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice@example.com", "").User

	res := e.register(t, "bob@example.com", alice.ReferralCode)
	if res.Referral == nil || res.ReferralError != "" {
		t.Fatalf("referral not applied: %+v", res)
	}
	if res.User.Coins != domain.WelcomeBonus+domain.ReferredBonus {
		t.Fatalf("bob balance = %d", res.User.Coins)
	}
	if got := e.reload(t, alice.ID).Coins; got != domain.WelcomeBonus+domain.ReferrerBonus {
		t.Fatalf("alice balance = %d", got)
	}
}

func TestRegisterWithBadReferralStillCreatesAccount(t *testing.T) {
	e := newEnv(t)

	res := e.register(t, "bob@example.com", "ZZZZZZ")
	if res.Referral != nil || res.ReferralError == "" {
		t.Fatalf("expected a referral error, got %+v", res)
	}
	if res.User.ID == 0 || res.User.Coins != domain.WelcomeBonus {
		t.Fatalf("account should exist with the welcome bonus: %+v", res.User)
	}
	logs, _ := e.audit.GetUserAuditLogs(e.ctx, res.User.ID, 10)
	found := false
	for _, l := range logs {
		if l.Action == domain.AuditActionReferralFailed {
			found = true
		}
	}
	if !found {
		t.Fatalf("failed referral was not audited")
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice@example.com", "")

	cases := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"duplicate email", RegisterInput{Name: "A", Email: "ALICE@example.com", Password: "password123"}, domain.ErrEmailTaken},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "password123"}, domain.ErrValidation},
		{"short password", RegisterInput{Name: "A", Email: "b@example.com", Password: "short"}, domain.ErrValidation},
		{"missing name", RegisterInput{Name: "  ", Email: "c@example.com", Password: "password123"}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.accounts.Register(e.ctx, tc.in, RequestInfo{}); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice@example.com", "")

	res, err := e.accounts.Login(e.ctx, " ALICE@example.com", "password123", RequestInfo{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" || res.User.Email != "alice@example.com" {
		t.Fatalf("unexpected login result %+v", res)
	}

	if _, err := e.accounts.Login(e.ctx, "alice@example.com", "wrong-password", RequestInfo{}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := e.accounts.Login(e.ctx, "nobody@example.com", "password123", RequestInfo{}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestUpdateName(t *testing.T) {
	e := newEnv(t)
	u := e.register(t, "alice@example.com", "").User

	updated, err := e.accounts.UpdateName(e.ctx, u.ID, "  Alice Liddell ")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Alice Liddell" {
		t.Fatalf("name = %q", updated.Name)
	}
	if _, err := e.accounts.UpdateName(e.ctx, u.ID, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	e := newEnv(t)

	created, err := e.accounts.EnsureAdmin(e.ctx, "Root", "root@example.com", "rootpass1")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if !created.IsAdmin {
		t.Fatalf("new account should be admin")
	}

	again, err := e.accounts.EnsureAdmin(e.ctx, "Root", "root@example.com", "newpass123")
	if err != nil {
		t.Fatalf("ensure admin again: %v", err)
	}
	if again.ID != created.ID {
		t.Fatalf("existing account should be reused")
	}
	if _, err := e.accounts.Login(e.ctx, "root@example.com", "newpass123", RequestInfo{}); err != nil {
		t.Fatalf("password should be reset: %v", err)
	}
}

func TestGenerateReferralCodeFormat(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateReferralCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !re.MatchString(code) {
			t.Fatalf("bad code %q", code)
		}
	}
}
