package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReferralInfo returns the caller's code, link, stats and referred users.
func (h *Handler) ReferralInfo(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	info, err := h.Referrals.Info(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

type ApplyReferralRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// ApplyReferral lets an account that signed up without a code redeem one later.
func (h *Handler) ApplyReferral(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req ApplyReferralRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Referrals.Process(c.Request.Context(), req.Code, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
