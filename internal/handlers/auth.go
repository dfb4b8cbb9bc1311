package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"teamcoin/internal/auth"
	"teamcoin/internal/services"
)

// AuthHandler handles registration and login endpoints
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// Register creates a new account and returns a token
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username     string `json:"username" binding:"required"`
		Email        string `json:"email" binding:"required"`
		Password     string `json:"password" binding:"required"`
		ReferralCode string `json:"referral_code"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "ValidationError"})
		return
	}

	user, err := h.authService.Register(req.Username, req.Email, req.Password, req.ReferralCode)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    user,
		"token":   token,
	})
}

// Login verifies credentials, applies the daily bonus and returns a token
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "ValidationError"})
		return
	}

	user, err := h.authService.Login(req.Username, req.Password, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
		"token":   token,
	})
}

// GetMe returns the authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}
