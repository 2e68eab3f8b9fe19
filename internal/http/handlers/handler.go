package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/service"
	"learnjs_backend/internal/validation"

	"github.com/gin-gonic/gin"
)

// Services are the application services the HTTP layer calls into.
type Services struct {
	Accounts  *service.AccountService
	Ledger    *service.LedgerService
	Gate      *service.LevelGate
	Levels    *service.LevelService
	Progress  *service.ProgressService
	Referrals *service.ReferralService
	Admin     *service.AdminService
	Audit     *service.AuditService
	Reconcile *service.ReconcileService
}

type Handler struct {
	Services
	validator *validation.Validator
}

func NewHandler(s Services) *Handler {
	return &Handler{Services: s, validator: validation.NewValidator()}
}

// getUserID returns the authenticated user id stored by the JWT middleware.
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// mustUserID writes a 401 and returns false when the request is anonymous.
func mustUserID(c *gin.Context) (int64, bool) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
	}
	return userID, ok
}

// bind decodes the JSON body into req and runs struct validation. On failure
// the 400 response is already written.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "bad_request"})
		return false
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"code":   "validation_error",
			"fields": validation.FormatValidationErrors(err),
		})
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, domain.NewValidationError(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil {
		return v
	}
	return def
}

func requestInfo(c *gin.Context) service.RequestInfo {
	return service.RequestInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// isNotFound reports whether err is any of the not-found sentinels.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
