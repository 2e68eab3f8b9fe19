package memory

import (
	"context"
	"errors"
	"testing"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/repository"
)

func newUser(t *testing.T, s *Store, email, code string, coins int64) *domain.User {
	t.Helper()
	u := &domain.User{Name: email, Email: email, ReferralCode: code, Coins: coins}
	if err := s.Repos().Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreateUserUniqueness(t *testing.T) {
	s := New()
	newUser(t, s, "a@example.com", "AAAAAA", 0)

	err := s.Repos().Users.Create(context.Background(), &domain.User{Email: "A@example.com", ReferralCode: "BBBBBB"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	err = s.Repos().Users.Create(context.Background(), &domain.User{Email: "b@example.com", ReferralCode: "AAAAAA"})
	if !errors.Is(err, repository.ErrReferralCodeTaken) {
		t.Fatalf("expected ErrReferralCodeTaken, got %v", err)
	}
}

func TestAddCoinsNeverNegative(t *testing.T) {
	s := New()
	u := newUser(t, s, "a@example.com", "AAAAAA", 10)
	ctx := context.Background()

	if _, err := s.Repos().Users.AddCoins(ctx, u.ID, -11); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	bal, err := s.Repos().Users.AddCoins(ctx, u.ID, -10)
	if err != nil || bal != 0 {
		t.Fatalf("AddCoins = %d, %v", bal, err)
	}
	if _, err := s.Repos().Users.AddCoins(ctx, 999, 1); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := New()
	u := newUser(t, s, "a@example.com", "AAAAAA", 50)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(r *repository.Repos) error {
		if _, err := r.Users.AddCoins(ctx, u.ID, -30); err != nil {
			return err
		}
		to := u.ID
		if err := r.Transactions.Create(ctx, &domain.Transaction{Type: domain.TransactionPurchase, Amount: 30, FromUserID: &to}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.Repos().Users.GetByID(ctx, u.ID)
	if got.Coins != 50 {
		t.Fatalf("balance should be restored to 50, got %d", got.Coins)
	}
	if n, _ := s.Repos().Transactions.Count(ctx); n != 0 {
		t.Fatalf("transaction should be rolled back, count=%d", n)
	}
}

func TestReturnedEntitiesAreCopies(t *testing.T) {
	s := New()
	u := newUser(t, s, "a@example.com", "AAAAAA", 0)
	ctx := context.Background()

	got, _ := s.Repos().Users.GetByID(ctx, u.ID)
	got.Coins = 1000
	got.UnlockedLevels[0] = 42

	again, _ := s.Repos().Users.GetByID(ctx, u.ID)
	if again.Coins != 0 || again.UnlockedLevels[0] != 1 {
		t.Fatalf("stored user was mutated through a returned copy")
	}
}

func TestReferralWriteOnce(t *testing.T) {
	s := New()
	a := newUser(t, s, "a@example.com", "AAAAAA", 0)
	b := newUser(t, s, "b@example.com", "BBBBBB", 0)
	c := newUser(t, s, "c@example.com", "CCCCCC", 0)
	ctx := context.Background()
	refs := s.Repos().Referrals

	if err := refs.Create(ctx, &domain.Referral{ReferrerID: a.ID, ReferredID: b.ID, CoinsEarned: 50}); err != nil {
		t.Fatalf("create referral: %v", err)
	}
	if err := refs.Create(ctx, &domain.Referral{ReferrerID: a.ID, ReferredID: b.ID}); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed for duplicate pair, got %v", err)
	}
	if err := refs.Create(ctx, &domain.Referral{ReferrerID: c.ID, ReferredID: b.ID}); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed for second referrer, got %v", err)
	}

	stats, _ := refs.Stats(ctx, a.ID)
	if stats.TotalReferrals != 1 || stats.TotalEarned != 50 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	list, _ := refs.ListByReferrer(ctx, a.ID)
	if len(list) != 1 || list[0].ReferredEmail != "b@example.com" {
		t.Fatalf("unexpected listing %+v", list)
	}
}

func TestLevelUpsertByNumber(t *testing.T) {
	s := New()
	ctx := context.Background()
	levels := s.Repos().Levels

	l := &domain.Level{Number: 15, Title: "Promises", IsActive: true}
	if err := levels.Upsert(ctx, l); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	firstID := l.ID

	update := &domain.Level{Number: 15, Title: "Async", IsActive: true, CoinsRequired: 1}
	if err := levels.Upsert(ctx, update); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if update.ID != firstID {
		t.Fatalf("upsert created a second level")
	}
	got, err := levels.GetByNumber(ctx, 15)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Async" || got.CoinsRequired != 50 {
		t.Fatalf("unexpected level %+v", got)
	}
}
