package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/repository"
)

var ErrRecipientNotFound = fmt.Errorf("recipient %w", domain.ErrNotFound)

// Notifier receives events once the change behind them has committed.
type Notifier interface {
	Notify(ev domain.Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(domain.Event) {}

// LedgerResult is the outcome of a single credit or debit.
type LedgerResult struct {
	Balance     int64               `json:"balance"`
	Transaction *domain.Transaction `json:"transaction"`
}

type TransferResult struct {
	Balance          int64               `json:"balance"`
	RecipientBalance int64               `json:"-"`
	Transaction      *domain.Transaction `json:"transaction"`
}

// LedgerService owns every coin movement. Each balance change is written
// together with its transaction record in the same storage transaction.
type LedgerService struct {
	store    repository.Store
	notifier Notifier
}

func NewLedgerService(store repository.Store) *LedgerService {
	return &LedgerService{store: store, notifier: nopNotifier{}}
}

func (s *LedgerService) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

func (s *LedgerService) publish(events ...domain.Event) {
	for _, ev := range events {
		s.notifier.Notify(ev)
	}
}

func balanceEvent(userID, balance int64, t *domain.Transaction) domain.Event {
	return domain.Event{Type: domain.EventBalance, UserID: userID, Balance: balance, Transaction: t}
}

// Balance returns user's current balance
func (s *LedgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	u, err := s.store.Repos().Users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Coins, nil
}

// CreditWithTx adds amount to userID inside r's transaction and records t.
func (s *LedgerService) CreditWithTx(ctx context.Context, r *repository.Repos, userID, amount int64, t *domain.Transaction) (int64, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return 0, err
	}
	balance, err := r.Users.AddCoins(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	t.Amount = amount
	t.ToUserID = &userID
	if err := r.Transactions.Create(ctx, t); err != nil {
		return 0, err
	}
	return balance, nil
}

// DebitWithTx removes amount from userID inside r's transaction and records t.
// It fails with domain.ErrInsufficientFunds and leaves the balance untouched
// when the user cannot cover it.
func (s *LedgerService) DebitWithTx(ctx context.Context, r *repository.Repos, userID, amount int64, t *domain.Transaction) (int64, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return 0, err
	}
	balance, err := r.Users.AddCoins(ctx, userID, -amount)
	if err != nil {
		return 0, err
	}
	t.Amount = amount
	t.FromUserID = &userID
	if err := r.Transactions.Create(ctx, t); err != nil {
		return 0, err
	}
	return balance, nil
}

// Credit adds amount to user's balance as a standalone operation.
func (s *LedgerService) Credit(ctx context.Context, userID, amount int64, txType domain.TransactionType, note string) (*LedgerResult, error) {
	return s.apply(ctx, userID, amount, txType, note, s.CreditWithTx)
}

// Debit deducts amount from user's balance as a standalone operation.
func (s *LedgerService) Debit(ctx context.Context, userID, amount int64, txType domain.TransactionType, note string) (*LedgerResult, error) {
	return s.apply(ctx, userID, amount, txType, note, s.DebitWithTx)
}

type ledgerOp func(context.Context, *repository.Repos, int64, int64, *domain.Transaction) (int64, error)

func (s *LedgerService) apply(ctx context.Context, userID, amount int64, txType domain.TransactionType, note string, op ledgerOp) (*LedgerResult, error) {
	note, err := domain.NormalizeNote(note)
	if err != nil {
		return nil, err
	}

	res := &LedgerResult{Transaction: &domain.Transaction{Type: txType, Note: note}}
	err = s.store.WithTx(ctx, func(r *repository.Repos) error {
		balance, err := op(ctx, r, userID, amount, res.Transaction)
		res.Balance = balance
		return err
	})
	if err != nil {
		return nil, err
	}

	observeTransactions(res.Transaction)
	s.publish(balanceEvent(userID, res.Balance, res.Transaction))
	return res, nil
}

// Transfer moves amount from one user to the account registered under toEmail.
func (s *LedgerService) Transfer(ctx context.Context, fromUserID int64, toEmail string, amount int64, note string) (*TransferResult, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	note, err := domain.NormalizeNote(note)
	if err != nil {
		return nil, err
	}
	toEmail = strings.ToLower(strings.TrimSpace(toEmail))
	if toEmail == "" {
		return nil, domain.NewValidationError("to_email", "is required")
	}

	res := &TransferResult{}
	var toUserID int64
	err = s.store.WithTx(ctx, func(r *repository.Repos) error {
		recipient, err := r.Users.GetByEmail(ctx, toEmail)
		if errors.Is(err, domain.ErrUserNotFound) {
			return ErrRecipientNotFound
		}
		if err != nil {
			return err
		}
		if recipient.ID == fromUserID {
			return domain.NewValidationError("to_email", "cannot transfer coins to yourself")
		}
		toUserID = recipient.ID

		// Lock both users (order by ID to prevent deadlocks)
		firstID, secondID := fromUserID, toUserID
		if firstID > secondID {
			firstID, secondID = secondID, firstID
		}
		if _, err := r.Users.GetByIDForUpdate(ctx, firstID); err != nil {
			return err
		}
		if _, err := r.Users.GetByIDForUpdate(ctx, secondID); err != nil {
			return err
		}

		res.Balance, err = r.Users.AddCoins(ctx, fromUserID, -amount)
		if err != nil {
			return err
		}
		res.RecipientBalance, err = r.Users.AddCoins(ctx, toUserID, amount)
		if err != nil {
			return err
		}

		from, to := fromUserID, toUserID
		res.Transaction = &domain.Transaction{
			Type:       domain.TransactionTransfer,
			Amount:     amount,
			FromUserID: &from,
			ToUserID:   &to,
			Note:       note,
		}
		return r.Transactions.Create(ctx, res.Transaction)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("coins transferred", "from_user_id", fromUserID, "to_user_id", toUserID, "amount", amount)
	observeTransactions(res.Transaction)
	s.publish(
		balanceEvent(fromUserID, res.Balance, res.Transaction),
		balanceEvent(toUserID, res.RecipientBalance, res.Transaction),
	)
	return res, nil
}

// History returns the latest transactions touching userID, newest first.
func (s *LedgerService) History(ctx context.Context, userID int64, limit int) ([]domain.TransactionView, error) {
	if limit <= 0 || limit > domain.HistoryLimit {
		limit = domain.HistoryLimit
	}
	views, err := s.store.Repos().Transactions.History(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if views == nil {
		views = []domain.TransactionView{}
	}
	return views, nil
}
