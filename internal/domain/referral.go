package domain

import "time"

const ReferralStatusCompleted = "completed"

type Referral struct {
	ID           int64      `db:"id" json:"id"`
	ReferrerID   int64      `db:"referrer_id" json:"referrer_id"`
	ReferredID   int64      `db:"referred_id" json:"referred_id"`
	ReferralCode string     `db:"referral_code" json:"referral_code"`
	CoinsEarned  int64      `db:"coins_earned" json:"coins_earned"`
	Status       string     `db:"status" json:"status"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`

	// ReferredName and ReferredEmail are filled on listings.
	ReferredName  string `db:"-" json:"referred_name,omitempty"`
	ReferredEmail string `db:"-" json:"referred_email,omitempty"`
}

type ReferralStats struct {
	TotalReferrals int   `json:"total_referrals"`
	TotalEarned    int64 `json:"total_earned"`
}
