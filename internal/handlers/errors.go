package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"teamcoin/internal/teamerr"
)

// statusFor maps a business error code to an HTTP status.
var statusFor = map[string]int{
	"AlreadyMember":     http.StatusConflict,
	"NotFound":          http.StatusNotFound,
	"TeamFull":          http.StatusConflict,
	"InvalidCandidate":  http.StatusBadRequest,
	"NoTeam":            http.StatusBadRequest,
	"InsufficientFunds": http.StatusBadRequest,
	"SelfTransfer":      http.StatusBadRequest,
	"ValidationError":   http.StatusBadRequest,
	"ConflictRetry":     http.StatusConflict,
	"StorageFailure":    http.StatusInternalServerError,
}

// respondError writes the typed error code for a service failure. Storage
// faults are logged server-side and surfaced without internal detail.
func respondError(c *gin.Context, err error) {
	code := teamerr.Code(err)
	status, ok := statusFor[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	if !teamerr.IsBusiness(err) {
		log.Printf("[Error] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"error": "Internal server error", "code": code})
		return
	}

	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
