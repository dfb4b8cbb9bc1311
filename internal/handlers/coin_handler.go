package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"teamcoin/internal/auth"
	"teamcoin/internal/services"
)

// CoinHandler handles transfers and ledger history
type CoinHandler struct {
	ledgerService *services.LedgerService
}

// NewCoinHandler creates a new CoinHandler
func NewCoinHandler(ledgerService *services.LedgerService) *CoinHandler {
	return &CoinHandler{ledgerService: ledgerService}
}

// Transfer moves coins from the authenticated user to another user
func (h *CoinHandler) Transfer(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		ToUserID uint   `json:"to_user_id" binding:"required"`
		Amount   string `json:"amount" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "ValidationError"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount", "code": "ValidationError"})
		return
	}

	result, err := h.ledgerService.Transfer(userID, req.ToUserID, amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// GetTransactions returns the authenticated user's ledger entries
func (h *CoinHandler) GetTransactions(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := h.ledgerService.History(userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entries,
		"count":   len(entries),
	})
}
