package handlers

import (
	"net/http"

	"learnjs_backend/internal/domain"

	"github.com/gin-gonic/gin"
)

// Every handler in this file sits behind middleware.AdminOnly. The services
// check the stored flag again inside their transactions.

func (h *Handler) AdminDashboard(c *gin.Context) {
	d, err := h.Admin.GetDashboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) AdminListUsers(c *gin.Context) {
	page, err := h.Admin.ListUsers(c.Request.Context(), c.Query("search"), queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) AdminGetUser(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	detail, err := h.Admin.GetUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type AddCoinsRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Amount int64  `json:"amount" validate:"gt=0"`
	Note   string `json:"note" validate:"max=200"`
}

func (h *Handler) AdminAddCoins(c *gin.Context) {
	adminID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req AddCoinsRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Admin.AddCoins(c.Request.Context(), adminID, req.UserID, req.Amount, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type SetAdminRequest struct {
	IsAdmin *bool `json:"is_admin" validate:"required"`
}

func (h *Handler) AdminSetAdmin(c *gin.Context) {
	adminID, ok := mustUserID(c)
	if !ok {
		return
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req SetAdminRequest
	if !h.bind(c, &req) {
		return
	}

	u, err := h.Admin.SetAdmin(c.Request.Context(), adminID, userID, *req.IsAdmin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) AdminListLevels(c *gin.Context) {
	levels, err := h.Levels.All(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"levels": levels})
}

type SaveLevelRequest struct {
	Number      int               `json:"level_number" validate:"levelnum"`
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description"`
	Difficulty  domain.Difficulty `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced expert"`
	CoinsReward int64             `json:"coins_reward" validate:"gte=0"`
	Lessons     []domain.Lesson   `json:"lessons"`
	IsActive    *bool             `json:"is_active"`
}

// AdminSaveLevel creates or replaces a level by number. The unlock price is
// always derived from the number.
func (h *Handler) AdminSaveLevel(c *gin.Context) {
	adminID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req SaveLevelRequest
	if !h.bind(c, &req) {
		return
	}

	level := &domain.Level{
		Number:      req.Number,
		Title:       req.Title,
		Description: req.Description,
		Difficulty:  req.Difficulty,
		CoinsReward: req.CoinsReward,
		Lessons:     req.Lessons,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	saved, err := h.Admin.SaveLevel(c.Request.Context(), adminID, level)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) AdminApplyReferral(c *gin.Context) {
	adminID, ok := mustUserID(c)
	if !ok {
		return
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ApplyReferralRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Admin.ApplyReferral(c.Request.Context(), adminID, userID, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AdminAuditLogs(c *gin.Context) {
	logs, err := h.Admin.AuditLogs(c.Request.Context(), int64(queryInt(c, "user_id", 0)), c.Query("category"), queryInt(c, "limit", 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (h *Handler) AdminReconcile(c *gin.Context) {
	adminID, ok := mustUserID(c)
	if !ok {
		return
	}

	report, err := h.Reconcile.RunAsAdmin(c.Request.Context(), adminID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
