package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/repository"
)

type ReferralResult struct {
	ReferrerID      int64                 `json:"referrer_id"`
	ReferrerBalance int64                 `json:"-"`
	ReferredBalance int64                 `json:"balance"`
	CoinsEarned     int64                 `json:"coins_earned"`
	Referral        *domain.Referral      `json:"referral"`
	Transactions    []*domain.Transaction `json:"-"`
}

type ReferralInfo struct {
	ReferralCode string               `json:"referral_code"`
	ReferralLink string               `json:"referral_link"`
	Stats        domain.ReferralStats `json:"stats"`
	Referrals    []*domain.Referral   `json:"referrals"`
}

type ReferralService struct {
	store     repository.Store
	ledger    *LedgerService
	publicURL string
}

func NewReferralService(store repository.Store, ledger *LedgerService, publicURL string) *ReferralService {
	return &ReferralService{store: store, ledger: ledger, publicURL: strings.TrimRight(publicURL, "/")}
}

// ProcessWithTx credits both parties of a referral inside r's transaction.
// A user can be referred only once, by a code other than their own.
func (s *ReferralService) ProcessWithTx(ctx context.Context, r *repository.Repos, code string, referredID int64) (*ReferralResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.ErrInvalidReferralCode
	}

	referrer, err := r.Users.GetByReferralCode(ctx, code)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidReferralCode
	}
	if err != nil {
		return nil, err
	}
	if referrer.ID == referredID {
		return nil, domain.ErrSelfReferral
	}

	referred, err := r.Users.GetByIDForUpdate(ctx, referredID)
	if err != nil {
		return nil, err
	}
	if referred.ReferredBy != nil {
		return nil, domain.ErrAlreadyProcessed
	}
	exists, err := r.Referrals.Exists(ctx, referrer.ID, referredID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAlreadyProcessed
	}

	now := time.Now()
	ref := &domain.Referral{
		ReferrerID:    referrer.ID,
		ReferredID:    referredID,
		ReferralCode:  code,
		CoinsEarned:   domain.ReferrerBonus,
		Status:        domain.ReferralStatusCompleted,
		CompletedAt:   &now,
		ReferredName:  referred.Name,
		ReferredEmail: referred.Email,
	}
	if err := r.Referrals.Create(ctx, ref); err != nil {
		return nil, err
	}
	set, err := r.Users.SetReferredBy(ctx, referredID, referrer.ID)
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, domain.ErrAlreadyProcessed
	}

	res := &ReferralResult{ReferrerID: referrer.ID, CoinsEarned: domain.ReferredBonus, Referral: ref}

	referrerTx := &domain.Transaction{
		Type: domain.TransactionReferral,
		Note: fmt.Sprintf("Referral bonus for inviting %s", referred.Name),
	}
	res.ReferrerBalance, err = s.ledger.CreditWithTx(ctx, r, referrer.ID, domain.ReferrerBonus, referrerTx)
	if err != nil {
		return nil, err
	}
	if err := r.Users.IncrementReferrals(ctx, referrer.ID); err != nil {
		return nil, err
	}

	referredTx := &domain.Transaction{
		Type: domain.TransactionReferral,
		Note: fmt.Sprintf("Referral bonus for joining with code %s", code),
	}
	res.ReferredBalance, err = s.ledger.CreditWithTx(ctx, r, referredID, domain.ReferredBonus, referredTx)
	if err != nil {
		return nil, err
	}
	res.Transactions = []*domain.Transaction{referrerTx, referredTx}

	err = LogWithTx(ctx, r, referredID, domain.AuditActionReferralApplied, domain.AuditCategoryReferral, map[string]interface{}{
		"referrer_id":   referrer.ID,
		"referral_code": code,
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Process runs ProcessWithTx in its own transaction and announces the new
// balances after commit.
func (s *ReferralService) Process(ctx context.Context, code string, referredID int64) (*ReferralResult, error) {
	var res *ReferralResult
	err := s.store.WithTx(ctx, func(r *repository.Repos) error {
		var err error
		res, err = s.ProcessWithTx(ctx, r, code, referredID)
		return err
	})
	if err != nil {
		ReferralsProcessed.WithLabelValues(referralResultLabel(err)).Inc()
		return nil, err
	}

	ReferralsProcessed.WithLabelValues("applied").Inc()
	s.Committed(res)
	logger.WithContext(ctx).Info("referral applied", "referrer_id", res.ReferrerID, "referred_id", referredID)
	return res, nil
}

// Committed publishes the side effects of a referral whose transaction has
// already been committed by the caller.
func (s *ReferralService) Committed(res *ReferralResult) {
	observeTransactions(res.Transactions...)
	s.ledger.publish(
		balanceEvent(res.ReferrerID, res.ReferrerBalance, res.Transactions[0]),
		balanceEvent(res.Referral.ReferredID, res.ReferredBalance, res.Transactions[1]),
	)
}

func referralResultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidReferralCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrSelfReferral):
		return "self_referral"
	case errors.Is(err, domain.ErrAlreadyProcessed):
		return "already_processed"
	default:
		return "error"
	}
}

// Link builds the shareable registration link for code.
func (s *ReferralService) Link(code string) string {
	return s.publicURL + "/register?ref=" + code
}

// Info returns the user's code, link, totals and referred users.
func (s *ReferralService) Info(ctx context.Context, userID int64) (*ReferralInfo, error) {
	repos := s.store.Repos()
	u, err := repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := repos.Referrals.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := repos.Referrals.ListByReferrer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Referral{}
	}
	return &ReferralInfo{
		ReferralCode: u.ReferralCode,
		ReferralLink: s.Link(u.ReferralCode),
		Stats:        stats,
		Referrals:    list,
	}, nil
}
