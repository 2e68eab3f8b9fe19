package repository

import (
	"context"

	"learnjs_backend/internal/domain"
)

type ReferralRepository struct {
	db DBTX
}

func NewReferralRepository(db DBTX) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// Create stores a referral relationship. Both unique constraints map to
// ErrAlreadyProcessed: a pair is write-once and a user is referred at most once.
func (r *ReferralRepository) Create(ctx context.Context, ref *domain.Referral) error {
	if ref.Status == "" {
		ref.Status = domain.ReferralStatusCompleted
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO referrals (referrer_id, referred_id, referral_code, coins_earned, status, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		ref.ReferrerID, ref.ReferredID, ref.ReferralCode, ref.CoinsEarned, ref.Status, ref.CompletedAt,
	).Scan(&ref.ID, &ref.CreatedAt)
	if isUniqueViolation(err, "") {
		return domain.ErrAlreadyProcessed
	}
	return err
}

func (r *ReferralRepository) Exists(ctx context.Context, referrerID, referredID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM referrals WHERE referrer_id = $1 AND referred_id = $2)`,
		referrerID, referredID,
	).Scan(&exists)
	return exists, err
}

// ListByReferrer returns the users referred by referrerID, newest first.
func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID int64) ([]*domain.Referral, error) {
	rows, err := r.db.Query(ctx,
		`SELECT rf.id, rf.referrer_id, rf.referred_id, rf.referral_code, rf.coins_earned, rf.status,
			rf.completed_at, rf.created_at, u.name, u.email
		 FROM referrals rf
		 JOIN users u ON u.id = rf.referred_id
		 WHERE rf.referrer_id = $1
		 ORDER BY rf.created_at DESC`,
		referrerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Referral
	for rows.Next() {
		var ref domain.Referral
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.ReferralCode, &ref.CoinsEarned,
			&ref.Status, &ref.CompletedAt, &ref.CreatedAt, &ref.ReferredName, &ref.ReferredEmail); err != nil {
			return nil, err
		}
		result = append(result, &ref)
	}
	return result, rows.Err()
}

func (r *ReferralRepository) Stats(ctx context.Context, referrerID int64) (domain.ReferralStats, error) {
	var stats domain.ReferralStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(coins_earned), 0) FROM referrals WHERE referrer_id = $1`,
		referrerID,
	).Scan(&stats.TotalReferrals, &stats.TotalEarned)
	return stats, err
}
