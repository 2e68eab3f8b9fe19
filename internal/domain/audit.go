package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth     = "auth"
	AuditCategoryBalance  = "balance"
	AuditCategoryLevel    = "level"
	AuditCategoryReferral = "referral"
	AuditCategoryAdmin    = "admin"
)

// Audit actions
const (
	AuditActionRegister = "register"
	AuditActionLogin    = "login"

	AuditActionTransfer = "transfer"

	AuditActionLevelUnlock   = "level_unlock"
	AuditActionLevelComplete = "level_complete"

	AuditActionReferralApplied = "referral_applied"
	AuditActionReferralFailed  = "referral_failed"

	AuditActionAdminAddCoins  = "admin_add_coins"
	AuditActionAdminSetAdmin  = "admin_set_admin"
	AuditActionAdminSaveLevel = "admin_save_level"
	AuditActionAdminReferral  = "admin_apply_referral"
	AuditActionAdminReconcile = "admin_reconcile"
)
