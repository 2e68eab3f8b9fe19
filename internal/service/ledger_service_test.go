package service

import (
	"errors"
	"strings"
	"testing"

	"learnjs_backend/internal/domain"
)

func TestTransferMovesCoins(t *testing.T) {
	e := newEnv(t)
	a := e.user(t, "alice@example.com", 50)
	b := e.user(t, "bob@example.com", 5)

	res, err := e.ledger.Transfer(e.ctx, a.ID, "Bob@Example.com", 30, "  thanks  ")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.Balance != 20 || res.RecipientBalance != 35 {
		t.Fatalf("unexpected balances %d / %d", res.Balance, res.RecipientBalance)
	}
	if got := e.reload(t, a.ID).Coins; got != 20 {
		t.Fatalf("sender balance = %d, want 20", got)
	}
	if got := e.reload(t, b.ID).Coins; got != 35 {
		t.Fatalf("recipient balance = %d, want 35", got)
	}

	tx := res.Transaction
	if tx.Type != domain.TransactionTransfer || tx.Amount != 30 || tx.Note != "thanks" {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if *tx.FromUserID != a.ID || *tx.ToUserID != b.ID {
		t.Fatalf("transaction parties wrong: %+v", tx)
	}
	if n, _ := e.store.Repos().Transactions.Count(e.ctx); n != 1 {
		t.Fatalf("expected exactly one transaction, got %d", n)
	}
	if evs := e.events.byType(domain.EventBalance); len(evs) != 2 {
		t.Fatalf("expected two balance events, got %d", len(evs))
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	e := newEnv(t)
	a := e.user(t, "alice@example.com", 10)
	b := e.user(t, "bob@example.com", 0)

	_, err := e.ledger.Transfer(e.ctx, a.ID, b.Email, 11, "")
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if e.reload(t, a.ID).Coins != 10 || e.reload(t, b.ID).Coins != 0 {
		t.Fatalf("balances changed after failed transfer")
	}
	if n, _ := e.store.Repos().Transactions.Count(e.ctx); n != 0 {
		t.Fatalf("failed transfer left %d transactions", n)
	}
}

func TestTransferValidation(t *testing.T) {
	e := newEnv(t)
	a := e.user(t, "alice@example.com", 100)
	e.user(t, "bob@example.com", 0)

	cases := []struct {
		name   string
		email  string
		amount int64
		note   string
		want   error
	}{
		{"zero amount", "bob@example.com", 0, "", domain.ErrValidation},
		{"negative amount", "bob@example.com", -5, "", domain.ErrValidation},
		{"self", "alice@example.com", 5, "", domain.ErrValidation},
		{"unknown recipient", "nobody@example.com", 5, "", domain.ErrNotFound},
		{"long note", "bob@example.com", 5, strings.Repeat("x", 201), domain.ErrValidation},
		{"missing email", " ", 5, "", domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.ledger.Transfer(e.ctx, a.ID, tc.email, tc.amount, tc.note)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if e.reload(t, a.ID).Coins != 100 {
		t.Fatalf("rejected transfers changed the balance")
	}
}

func TestCreditAndDebitRecordTransactions(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "alice@example.com", 0)

	credit, err := e.ledger.Credit(e.ctx, u.ID, 40, domain.TransactionReward, "bonus")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if credit.Balance != 40 || *credit.Transaction.ToUserID != u.ID {
		t.Fatalf("unexpected credit result %+v", credit)
	}

	if _, err := e.ledger.Debit(e.ctx, u.ID, 41, domain.TransactionPurchase, ""); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	debit, err := e.ledger.Debit(e.ctx, u.ID, 15, domain.TransactionPurchase, "")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if debit.Balance != 25 || *debit.Transaction.FromUserID != u.ID {
		t.Fatalf("unexpected debit result %+v", debit)
	}
	if n, _ := e.store.Repos().Transactions.Count(e.ctx); n != 2 {
		t.Fatalf("expected 2 transactions, got %d", n)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	e := newEnv(t)
	a := e.user(t, "alice@example.com", 100)
	b := e.user(t, "bob@example.com", 0)

	if _, err := e.ledger.Transfer(e.ctx, a.ID, b.Email, 10, "first"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := e.ledger.Transfer(e.ctx, a.ID, b.Email, 20, "second"); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	hist, err := e.ledger.History(e.ctx, a.ID, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hist))
	}
	if hist[0].Note != "second" || hist[0].SignedAmount != -20 {
		t.Fatalf("unexpected newest entry %+v", hist[0])
	}
	if hist[0].CounterpartyEmail != b.Email {
		t.Fatalf("counterparty = %q", hist[0].CounterpartyEmail)
	}

	recv, _ := e.ledger.History(e.ctx, b.ID, 1)
	if len(recv) != 1 || recv[0].SignedAmount != 20 {
		t.Fatalf("unexpected recipient history %+v", recv)
	}
}
