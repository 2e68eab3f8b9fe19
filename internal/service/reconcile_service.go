package service

import (
	"context"
	"sort"
	"time"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/repository"
)

// Divergence is a user whose stored balance disagrees with the sum of their
// transactions.
type Divergence struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
	Ledger  int64 `json:"ledger"`
}

type ReconcileReport struct {
	CheckedUsers int          `json:"checked_users"`
	Divergent    []Divergence `json:"divergent"`
	RanAt        time.Time    `json:"ran_at"`
}

// ReconcileService compares balances against the transaction history.
type ReconcileService struct {
	store repository.Store
}

func NewReconcileService(store repository.Store) *ReconcileService {
	return &ReconcileService{store: store}
}

func (s *ReconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	var (
		balances map[int64]int64
		net      map[int64]int64
	)
	// both sums must come from one snapshot
	err := s.store.WithSnapshot(ctx, func(r *repository.Repos) error {
		var err error
		if balances, err = r.Users.Balances(ctx); err != nil {
			return err
		}
		net, err = r.Transactions.NetByUser(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{CheckedUsers: len(balances), Divergent: []Divergence{}, RanAt: time.Now().UTC()}
	for id, balance := range balances {
		if ledger := net[id]; ledger != balance {
			report.Divergent = append(report.Divergent, Divergence{UserID: id, Balance: balance, Ledger: ledger})
		}
	}
	sort.Slice(report.Divergent, func(i, j int) bool { return report.Divergent[i].UserID < report.Divergent[j].UserID })

	ReconcileDivergent.Set(float64(len(report.Divergent)))
	for _, d := range report.Divergent {
		logger.Warn("balance diverges from ledger", "user_id", d.UserID, "balance", d.Balance, "ledger", d.Ledger)
	}
	logger.Info("ledger reconciliation finished", "checked_users", report.CheckedUsers, "divergent", len(report.Divergent))
	return report, nil
}

// RunAsAdmin runs a reconciliation on request and records who asked.
func (s *ReconcileService) RunAsAdmin(ctx context.Context, adminID int64) (*ReconcileReport, error) {
	err := s.store.WithTx(ctx, func(r *repository.Repos) error {
		return requireAdmin(ctx, r, adminID)
	})
	if err != nil {
		return nil, err
	}
	report, err := s.Run(ctx)
	if err != nil {
		return nil, err
	}
	err = LogWithTx(ctx, s.store.Repos(), adminID, domain.AuditActionAdminReconcile, domain.AuditCategoryAdmin, map[string]interface{}{
		"checked_users": report.CheckedUsers,
		"divergent":     len(report.Divergent),
	})
	if err != nil {
		logger.Error("failed to create audit log", "error", err, "action", domain.AuditActionAdminReconcile)
	}
	return report, nil
}
