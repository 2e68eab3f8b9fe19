package service

import (
	"errors"
	"testing"

	"learnjs_backend/internal/domain"
)

func TestIsUnlocked(t *testing.T) {
	g := &LevelGate{}
	u := &domain.User{UnlockedLevels: []int{1, 2, 13}}

	cases := []struct {
		level int
		want  bool
	}{
		{1, true},
		{7, true}, // free tier even if not stored
		{10, true},
		{11, false},
		{13, true},
		{50, false},
	}
	for _, tc := range cases {
		if got := g.IsUnlocked(u, tc.level); got != tc.want {
			t.Errorf("IsUnlocked(%d) = %v, want %v", tc.level, got, tc.want)
		}
	}

	if g.CanAccess(u, 40) {
		t.Fatalf("regular user should not access level 40")
	}
	u.IsAdmin = true
	if !g.CanAccess(u, 40) {
		t.Fatalf("admin should access every level")
	}
}

func TestUnlockPaidLevel(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "alice@example.com", 100)
	l := e.level(t, 12)

	res, err := e.gate.Unlock(e.ctx, u.ID, l.ID)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if res.Balance != 80 || res.CoinsSpent != 20 || res.CurrentLevel != 12 {
		t.Fatalf("unexpected result %+v", res)
	}

	stored := e.reload(t, u.ID)
	if stored.Coins != 80 || stored.CurrentLevel != 12 || !stored.HasUnlocked(12) {
		t.Fatalf("unexpected stored user %+v", stored)
	}
	if res.Transaction == nil || res.Transaction.Type != domain.TransactionPurchase || res.Transaction.Amount != 20 {
		t.Fatalf("unexpected transaction %+v", res.Transaction)
	}
	if evs := e.events.byType(domain.EventLevelUnlocked); len(evs) != 1 || evs[0].Level != 12 {
		t.Fatalf("unexpected unlock events %+v", evs)
	}

	if _, err := e.gate.Unlock(e.ctx, u.ID, l.ID); !errors.Is(err, domain.ErrAlreadyUnlocked) {
		t.Fatalf("expected ErrAlreadyUnlocked, got %v", err)
	}
	if got := e.reload(t, u.ID).Coins; got != 80 {
		t.Fatalf("second unlock charged again, balance %d", got)
	}
}

func TestUnlockInsufficientCoins(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "alice@example.com", 10)
	l := e.level(t, 12)

	_, err := e.gate.Unlock(e.ctx, u.ID, l.ID)
	if !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected ErrInsufficientCoins, got %v", err)
	}
	var ic *domain.InsufficientCoinsError
	if !errors.As(err, &ic) || ic.Required != 20 || ic.Shortfall() != 10 {
		t.Fatalf("unexpected error detail %+v", ic)
	}

	stored := e.reload(t, u.ID)
	if stored.Coins != 10 || stored.HasUnlocked(12) || stored.CurrentLevel != 1 {
		t.Fatalf("failed unlock changed the user: %+v", stored)
	}
	if n, _ := e.store.Repos().Transactions.Count(e.ctx); n != 0 {
		t.Fatalf("failed unlock recorded %d transactions", n)
	}
}

func TestUnlockFreeLevel(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "alice@example.com", 0)
	l := e.level(t, 5)

	if _, err := e.gate.Unlock(e.ctx, u.ID, l.ID); !errors.Is(err, domain.ErrAlreadyUnlocked) {
		t.Fatalf("default levels are stored at signup, expected ErrAlreadyUnlocked, got %v", err)
	}

	legacy := &domain.User{Name: "old", Email: "old@example.com", ReferralCode: "OLDOLD", UnlockedLevels: []int{1}}
	if err := e.store.Repos().Users.Create(e.ctx, legacy); err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := e.gate.Unlock(e.ctx, legacy.ID, l.ID)
	if err != nil {
		t.Fatalf("unlock free level: %v", err)
	}
	if res.CoinsSpent != 0 || res.Transaction != nil || res.CurrentLevel != 5 {
		t.Fatalf("free unlock should cost nothing: %+v", res)
	}
}

func TestUnlockPriceScalesWithLevel(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "alice@example.com", 400)
	l := e.level(t, 40)

	res, err := e.gate.Unlock(e.ctx, u.ID, l.ID)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if res.CoinsSpent != 300 || res.Balance != 100 {
		t.Fatalf("level 40 should cost 300, got %+v", res)
	}
}

func TestUnlockUnknownLevel(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "alice@example.com", 100)

	if _, err := e.gate.Unlock(e.ctx, u.ID, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	inactive := &domain.Level{Number: 20, Title: "Draft"}
	if err := e.store.Repos().Levels.Upsert(e.ctx, inactive); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := e.gate.Unlock(e.ctx, u.ID, inactive.ID); !errors.Is(err, domain.ErrLevelNotFound) {
		t.Fatalf("inactive level should not be sold, got %v", err)
	}
}
