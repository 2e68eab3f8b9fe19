package domain

import (
	"sort"
	"time"
)

const (
	// FreeLevels is the number of levels every account can open without paying.
	FreeLevels = 10
	MaxLevel   = 50

	WelcomeBonus  int64 = 25
	ReferrerBonus int64 = 50
	ReferredBonus int64 = 25

	ReferralCodeLength = 6
)

type User struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Coins          int64     `db:"coins" json:"coins"`
	CurrentLevel   int       `db:"current_level" json:"current_level"`
	UnlockedLevels []int     `db:"unlocked_levels" json:"unlocked_levels"`
	ReferralCode   string    `db:"referral_code" json:"referral_code"`
	ReferredBy     *int64    `db:"referred_by" json:"referred_by,omitempty"`
	Referrals      int       `db:"referrals" json:"referrals"`
	IsAdmin        bool      `db:"is_admin" json:"is_admin"`
	LastActive     time.Time `db:"last_active" json:"last_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// DefaultUnlockedLevels returns the levels stored for a fresh account.
func DefaultUnlockedLevels() []int {
	levels := make([]int, FreeLevels)
	for i := range levels {
		levels[i] = i + 1
	}
	return levels
}

// HasUnlocked reports whether n is in the stored unlocked set.
func (u *User) HasUnlocked(n int) bool {
	for _, l := range u.UnlockedLevels {
		if l == n {
			return true
		}
	}
	return false
}

// IsUnlocked also treats the free tier as open even if the stored set lacks it.
func (u *User) IsUnlocked(n int) bool {
	return n <= FreeLevels || u.HasUnlocked(n)
}

// Unlock adds n to the unlocked set and advances CurrentLevel.
// It returns false when n was already stored.
func (u *User) Unlock(n int) bool {
	if n > u.CurrentLevel {
		u.CurrentLevel = n
	}
	if u.HasUnlocked(n) {
		return false
	}
	u.UnlockedLevels = append(u.UnlockedLevels, n)
	sort.Ints(u.UnlockedLevels)
	return true
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UserSummary is the public view used in admin listings.
type UserSummary struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Coins        int64     `json:"coins"`
	CurrentLevel int       `json:"current_level"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Coins:        u.Coins,
		CurrentLevel: u.CurrentLevel,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
	}
}
