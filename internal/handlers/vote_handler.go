package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"teamcoin/internal/auth"
	"teamcoin/internal/services"
)

// VoteHandler handles ballot casting
type VoteHandler struct {
	voteService *services.VoteService
}

// NewVoteHandler creates a new VoteHandler
func NewVoteHandler(voteService *services.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

// CastVote records (or overwrites) today's ballot for the authenticated
// voter and returns the candidate plus the re-resolved leader
func (h *VoteHandler) CastVote(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		CandidateID uint `json:"candidate_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "ValidationError"})
		return
	}

	result, err := h.voteService.CastVote(userID, req.CandidateID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
