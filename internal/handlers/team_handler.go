package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"teamcoin/internal/auth"
	"teamcoin/internal/services"
)

// TeamHandler handles team creation, joining and lookup
type TeamHandler struct {
	teamService *services.TeamService
}

// NewTeamHandler creates a new TeamHandler
func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// CreateTeam creates a level-1 team founded by the authenticated user
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "ValidationError"})
		return
	}

	team, err := h.teamService.CreateTeam(userID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    team,
	})
}

// JoinTeam adds the authenticated user to a level-1 team
func (h *TeamHandler) JoinTeam(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	teamID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team id", "code": "ValidationError"})
		return
	}

	team, err := h.teamService.JoinTeam(userID, uint(teamID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    team,
	})
}

// GetTeam returns a team with members and today's leader
func (h *TeamHandler) GetTeam(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team id", "code": "ValidationError"})
		return
	}

	day := c.Query("day")
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	}

	info, err := h.teamService.GetTeamInfo(uint(teamID), day)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    info,
	})
}
