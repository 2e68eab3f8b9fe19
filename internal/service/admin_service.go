package service

import (
	"context"
	"strings"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/repository"
)

const (
	recentUsersLimit = 10
	defaultUserPage  = 20
	maxUserPage      = 100
)

// AdminService provides admin statistics and operations. Every mutating
// call re-reads the caller from storage and requires the admin flag there.
type AdminService struct {
	store     repository.Store
	ledger    *LedgerService
	referrals *ReferralService
	levels    *LevelService
	audit     *AuditService
}

func NewAdminService(store repository.Store, ledger *LedgerService, referrals *ReferralService, levels *LevelService, audit *AuditService) *AdminService {
	return &AdminService{store: store, ledger: ledger, referrals: referrals, levels: levels, audit: audit}
}

// Dashboard represents platform statistics
type Dashboard struct {
	TotalUsers        int                  `json:"total_users"`
	TotalCoins        int64                `json:"total_coins"`
	TotalTransactions int                  `json:"total_transactions"`
	RecentUsers       []domain.UserSummary `json:"recent_users"`
	LevelStats        []domain.LevelStat   `json:"level_stats"`
}

type UserDetail struct {
	User         *domain.User             `json:"user"`
	Progress     []*domain.Progress       `json:"progress"`
	Transactions []domain.TransactionView `json:"transactions"`
	Referrals    domain.ReferralStats     `json:"referrals"`
	AuditLogs    []*domain.AuditLog       `json:"audit_logs"`
}

type UserPage struct {
	Users  []domain.UserSummary `json:"users"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func requireAdmin(ctx context.Context, r *repository.Repos, adminID int64) error {
	u, err := r.Users.GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if !u.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}

// IsAdmin reports the stored admin flag of userID.
func (s *AdminService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	u, err := s.store.Repos().Users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}

// GetDashboard returns platform statistics
func (s *AdminService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	repos := s.store.Repos()
	d := &Dashboard{}
	var err error

	if d.TotalUsers, err = repos.Users.Count(ctx); err != nil {
		return nil, err
	}
	if d.TotalCoins, err = repos.Users.TotalCoins(ctx); err != nil {
		return nil, err
	}
	if d.TotalTransactions, err = repos.Transactions.Count(ctx); err != nil {
		return nil, err
	}
	recent, err := repos.Users.Recent(ctx, recentUsersLimit)
	if err != nil {
		return nil, err
	}
	d.RecentUsers = summaries(recent)
	if d.LevelStats, err = repos.Progress.LevelStats(ctx); err != nil {
		return nil, err
	}
	if d.LevelStats == nil {
		d.LevelStats = []domain.LevelStat{}
	}
	return d, nil
}

func summaries(users []*domain.User) []domain.UserSummary {
	out := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out
}

// ListUsers pages through users, optionally filtered by name or email.
func (s *AdminService) ListUsers(ctx context.Context, search string, limit, offset int) (*UserPage, error) {
	if limit <= 0 {
		limit = defaultUserPage
	}
	if limit > maxUserPage {
		limit = maxUserPage
	}
	if offset < 0 {
		offset = 0
	}
	users, total, err := s.store.Repos().Users.List(ctx, strings.TrimSpace(search), limit, offset)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: summaries(users), Total: total, Limit: limit, Offset: offset}, nil
}

func (s *AdminService) GetUser(ctx context.Context, userID int64) (*UserDetail, error) {
	repos := s.store.Repos()
	u, err := repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := &UserDetail{User: u}
	if d.Progress, err = repos.Progress.ListByUser(ctx, userID); err != nil {
		return nil, err
	}
	if d.Transactions, err = s.ledger.History(ctx, userID, domain.HistoryLimit); err != nil {
		return nil, err
	}
	if d.Referrals, err = repos.Referrals.Stats(ctx, userID); err != nil {
		return nil, err
	}
	if d.AuditLogs, err = s.audit.GetUserAuditLogs(ctx, userID, 20); err != nil {
		return nil, err
	}
	return d, nil
}

// AddCoins grants amount coins to userID. The grant, its transaction and
// the audit entry commit together.
func (s *AdminService) AddCoins(ctx context.Context, adminID, userID, amount int64, note string) (*LedgerResult, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	note, err := domain.NormalizeNote(note)
	if err != nil {
		return nil, err
	}
	if note == "" {
		note = "Admin coin addition"
	}

	res := &LedgerResult{Transaction: &domain.Transaction{Type: domain.TransactionPurchase, Note: note}}
	err = s.store.WithTx(ctx, func(r *repository.Repos) error {
		if err := requireAdmin(ctx, r, adminID); err != nil {
			return err
		}
		balance, err := s.ledger.CreditWithTx(ctx, r, userID, amount, res.Transaction)
		if err != nil {
			return err
		}
		res.Balance = balance
		return LogAdminAction(ctx, r, adminID, domain.AuditActionAdminAddCoins, userID, map[string]interface{}{
			"amount": amount,
			"note":   note,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("admin added coins", "admin_id", adminID, "user_id", userID, "amount", amount)
	observeTransactions(res.Transaction)
	s.ledger.publish(balanceEvent(userID, res.Balance, res.Transaction))
	return res, nil
}

// SetAdmin grants or revokes admin rights. Admins cannot demote themselves.
func (s *AdminService) SetAdmin(ctx context.Context, adminID, userID int64, isAdmin bool) (*domain.User, error) {
	if adminID == userID && !isAdmin {
		return nil, domain.NewValidationError("is_admin", "cannot revoke your own admin rights")
	}
	var out *domain.User
	err := s.store.WithTx(ctx, func(r *repository.Repos) error {
		if err := requireAdmin(ctx, r, adminID); err != nil {
			return err
		}
		if err := r.Users.SetAdmin(ctx, userID, isAdmin); err != nil {
			return err
		}
		var err error
		if out, err = r.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		return LogAdminAction(ctx, r, adminID, domain.AuditActionAdminSetAdmin, userID, map[string]interface{}{
			"is_admin": isAdmin,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveLevel creates or replaces the level with the same number.
func (s *AdminService) SaveLevel(ctx context.Context, adminID int64, level *domain.Level) (*domain.Level, error) {
	if err := level.Normalize(); err != nil {
		return nil, err
	}
	err := s.store.WithTx(ctx, func(r *repository.Repos) error {
		if err := requireAdmin(ctx, r, adminID); err != nil {
			return err
		}
		if err := r.Levels.Upsert(ctx, level); err != nil {
			return err
		}
		return LogWithTx(ctx, r, adminID, domain.AuditActionAdminSaveLevel, domain.AuditCategoryAdmin, map[string]interface{}{
			"level_id":     level.ID,
			"level_number": level.Number,
			"is_active":    level.IsActive,
		})
	})
	if err != nil {
		return nil, err
	}
	s.levels.InvalidateCache(ctx)
	return level, nil
}

// ApplyReferral processes code on behalf of userID.
func (s *AdminService) ApplyReferral(ctx context.Context, adminID, userID int64, code string) (*ReferralResult, error) {
	var res *ReferralResult
	err := s.store.WithTx(ctx, func(r *repository.Repos) error {
		if err := requireAdmin(ctx, r, adminID); err != nil {
			return err
		}
		var err error
		if res, err = s.referrals.ProcessWithTx(ctx, r, code, userID); err != nil {
			return err
		}
		return LogAdminAction(ctx, r, adminID, domain.AuditActionAdminReferral, userID, map[string]interface{}{
			"referral_code": code,
			"referrer_id":   res.ReferrerID,
		})
	})
	if err != nil {
		ReferralsProcessed.WithLabelValues(referralResultLabel(err)).Inc()
		return nil, err
	}
	ReferralsProcessed.WithLabelValues("applied").Inc()
	s.referrals.Committed(res)
	return res, nil
}

// AuditLogs returns recent entries, narrowed to one user or category when given.
func (s *AdminService) AuditLogs(ctx context.Context, userID int64, category string, limit int) ([]*domain.AuditLog, error) {
	var (
		logs []*domain.AuditLog
		err  error
	)
	switch {
	case userID > 0:
		logs, err = s.audit.GetUserAuditLogs(ctx, userID, limit)
	case category != "":
		logs, err = s.audit.GetLogsByCategory(ctx, category, limit)
	default:
		logs, err = s.audit.GetRecentLogs(ctx, limit)
	}
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	return logs, nil
}
