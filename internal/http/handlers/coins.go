package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Balance(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	balance, err := h.Ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": balance})
}

type TransferRequest struct {
	ToEmail string `json:"to_email" validate:"required,email"`
	Amount  int64  `json:"amount" validate:"gt=0"`
	Note    string `json:"note" validate:"max=200"`
}

func (h *Handler) Transfer(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req TransferRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Ledger.Transfer(c.Request.Context(), userID, req.ToEmail, req.Amount, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Transactions(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	list, err := h.Ledger.History(c.Request.Context(), userID, queryInt(c, "limit", 50))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list})
}
