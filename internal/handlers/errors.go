package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"messageapp/internal/repositories"
)

// statusFor maps repository error kinds to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repositories.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repositories.ErrConflict), errors.Is(err, repositories.ErrInvariant):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Expected failures carry their
// own message; anything else is logged and answered with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
