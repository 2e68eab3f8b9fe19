package service

import (
	"context"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/repository"
)

const defaultAuditLimit = 100

// AuditService handles audit logging
type AuditService struct {
	store repository.Store
}

// NewAuditService creates a new audit service
func NewAuditService(store repository.Store) *AuditService {
	return &AuditService{store: store}
}

// Log creates a new audit log entry. Failures are logged, never returned.
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	s.LogWithRequest(ctx, userID, action, category, "", "", details)
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID int64, action, category, ip, userAgent string, details map[string]interface{}) {
	log := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.store.Repos().Audit.Create(ctx, log); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogWithTx writes the entry inside r's transaction so it commits or rolls
// back together with the change it describes.
func LogWithTx(ctx context.Context, r *repository.Repos, userID int64, action, category string, details map[string]interface{}) error {
	return r.Audit.Create(ctx, &domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Category: category,
		Details:  details,
	})
}

// LogAdminAction logs an admin action against targetUserID.
func LogAdminAction(ctx context.Context, r *repository.Repos, adminID int64, action string, targetUserID int64, details map[string]interface{}) error {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["admin_id"] = adminID
	details["target_user_id"] = targetUserID

	return LogWithTx(ctx, r, targetUserID, action, domain.AuditCategoryAdmin, details)
}

// LogLogin logs a user login
func (s *AuditService) LogLogin(ctx context.Context, userID int64, ip, userAgent string) {
	s.LogWithRequest(ctx, userID, domain.AuditActionLogin, domain.AuditCategoryAuth, ip, userAgent, nil)
}

// GetUserAuditLogs returns audit logs for a user
func (s *AuditService) GetUserAuditLogs(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	return s.store.Repos().Audit.GetByUserID(ctx, userID, auditLimit(limit))
}

// GetRecentLogs returns recent audit logs
func (s *AuditService) GetRecentLogs(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	return s.store.Repos().Audit.GetRecent(ctx, auditLimit(limit))
}

// GetLogsByCategory returns logs by category
func (s *AuditService) GetLogsByCategory(ctx context.Context, category string, limit int) ([]*domain.AuditLog, error) {
	return s.store.Repos().Audit.GetByCategory(ctx, category, auditLimit(limit))
}

func auditLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultAuditLimit
	}
	return limit
}
