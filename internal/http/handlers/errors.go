package handlers

import (
	"errors"
	"net/http"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error onto a status code and a stable error code.
func writeError(c *gin.Context, err error) {
	var coins *domain.InsufficientCoinsError
	if errors.As(err, &coins) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"code":      "insufficient_coins",
			"required":  coins.Required,
			"balance":   coins.Balance,
			"shortfall": coins.Shortfall(),
		})
		return
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body := gin.H{"error": verr.Error(), "code": "validation_error"}
		if verr.Field != "" {
			body["fields"] = map[string]string{verr.Field: verr.Message}
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}

	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed",
			"error", err, "path", c.FullPath(), "method", c.Request.Method)
		c.JSON(status, gin.H{"error": "internal server error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest, "insufficient_funds"
	case errors.Is(err, domain.ErrAlreadyUnlocked):
		return http.StatusConflict, "already_unlocked"
	case errors.Is(err, domain.ErrAlreadyProcessed):
		return http.StatusConflict, "already_processed"
	case errors.Is(err, domain.ErrSelfReferral):
		return http.StatusBadRequest, "self_referral"
	case errors.Is(err, domain.ErrInvalidReferralCode):
		return http.StatusNotFound, "invalid_referral_code"
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, "email_taken"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, domain.ErrLevelLocked):
		return http.StatusForbidden, "level_locked"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case isNotFound(err):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
