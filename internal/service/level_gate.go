package service

import (
	"context"
	"errors"
	"fmt"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/repository"
)

type UnlockResult struct {
	Level          int                 `json:"level"`
	Balance        int64               `json:"balance"`
	CoinsSpent     int64               `json:"coins_spent"`
	CurrentLevel   int                 `json:"current_level"`
	UnlockedLevels []int               `json:"unlocked_levels"`
	Transaction    *domain.Transaction `json:"transaction,omitempty"`
}

// LevelGate decides which levels a user may open and sells the paid ones.
type LevelGate struct {
	store  repository.Store
	ledger *LedgerService
}

func NewLevelGate(store repository.Store, ledger *LedgerService) *LevelGate {
	return &LevelGate{store: store, ledger: ledger}
}

func (g *LevelGate) IsUnlocked(u *domain.User, n int) bool {
	return u.IsUnlocked(n)
}

// CanAccess is IsUnlocked with the admin bypass applied.
func (g *LevelGate) CanAccess(u *domain.User, n int) bool {
	return u.IsAdmin || u.IsUnlocked(n)
}

// Unlock opens levelID for userID, charging the level price when it lies
// beyond the free tier. Debit, transaction record and level set change
// commit together or not at all.
func (g *LevelGate) Unlock(ctx context.Context, userID, levelID int64) (*UnlockResult, error) {
	res := &UnlockResult{}
	err := g.store.WithTx(ctx, func(r *repository.Repos) error {
		u, err := r.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		level, err := r.Levels.GetByID(ctx, levelID)
		if err != nil {
			return err
		}
		if !level.IsActive {
			return domain.ErrLevelNotFound
		}
		if u.HasUnlocked(level.Number) {
			return domain.ErrAlreadyUnlocked
		}

		res.Level = level.Number
		res.Balance = u.Coins
		if level.Number > domain.FreeLevels {
			price := domain.CoinsRequired(level.Number)
			if u.Coins < price {
				return &domain.InsufficientCoinsError{Required: price, Balance: u.Coins}
			}
			t := &domain.Transaction{
				Type: domain.TransactionPurchase,
				Note: fmt.Sprintf("Unlocked level %d", level.Number),
			}
			res.Balance, err = g.ledger.DebitWithTx(ctx, r, userID, price, t)
			if errors.Is(err, domain.ErrInsufficientFunds) {
				return &domain.InsufficientCoinsError{Required: price, Balance: u.Coins}
			}
			if err != nil {
				return err
			}
			res.CoinsSpent = price
			res.Transaction = t
		}

		updated, err := r.Users.UnlockLevel(ctx, userID, level.Number)
		if err != nil {
			return err
		}
		res.CurrentLevel = updated.CurrentLevel
		res.UnlockedLevels = updated.UnlockedLevels

		return LogWithTx(ctx, r, userID, domain.AuditActionLevelUnlock, domain.AuditCategoryLevel, map[string]interface{}{
			"level":       level.Number,
			"coins_spent": res.CoinsSpent,
		})
	})
	if err != nil {
		return nil, err
	}

	kind := "free"
	if res.CoinsSpent > 0 {
		kind = "paid"
		observeTransactions(res.Transaction)
	}
	LevelUnlocks.WithLabelValues(kind).Inc()
	logger.WithContext(ctx).Info("level unlocked", "user_id", userID, "level", res.Level, "coins_spent", res.CoinsSpent)

	g.ledger.publish(domain.Event{
		Type:        domain.EventLevelUnlocked,
		UserID:      userID,
		Balance:     res.Balance,
		Level:       res.Level,
		Transaction: res.Transaction,
	})
	return res, nil
}

// UnlockRewardWithTx opens level n for free as a completion reward. It
// reports whether the level was newly added.
func (g *LevelGate) UnlockRewardWithTx(ctx context.Context, r *repository.Repos, u *domain.User, n int) (bool, error) {
	if n > domain.MaxLevel || u.HasUnlocked(n) {
		return false, nil
	}
	if _, err := r.Users.UnlockLevel(ctx, u.ID, n); err != nil {
		return false, err
	}
	return true, nil
}
