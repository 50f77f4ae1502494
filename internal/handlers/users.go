package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messageapp/internal/middleware"
	"messageapp/internal/models"
	"messageapp/internal/repositories"
	"messageapp/internal/telemetry"
)

const minSearchLength = 2

// UserHandler serves profile endpoints.
type UserHandler struct {
	users repositories.UserRepository
	audit *telemetry.AuditEmitter
}

func NewUserHandler(users repositories.UserRepository, audit *telemetry.AuditEmitter) *UserHandler {
	return &UserHandler{users: users, audit: audit}
}

// Me handles GET /users/me using the profile loaded by the auth middleware.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := c.Get(middleware.UserKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PUT /users/me.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Update(c.Request.Context(), userIDFromContext(c), req)
	if err != nil {
		respondError(c, err, "Server failed to update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword handles PUT /users/password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"oldPassword" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both old and new passwords are required"})
		return
	}

	userID := userIDFromContext(c)
	if err := h.users.VerifyPassword(c.Request.Context(), userID, req.OldPassword); err != nil {
		if errors.Is(err, repositories.ErrInvalidCredentials) {
			emitAudit(h.audit, c, telemetry.LevelWarn, "user.password", "old password mismatch")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid old password"})
			return
		}
		respondError(c, err, "Server failed to change password")
		return
	}
	if err := h.users.UpdatePassword(c.Request.Context(), userID, req.NewPassword); err != nil {
		respondError(c, err, "Server failed to change password")
		return
	}

	emitAudit(h.audit, c, telemetry.LevelInfo, "user.password", "password changed")
	c.JSON(http.StatusOK, gin.H{"message": "Password successfully changed"})
}

// Search handles GET /users/search?query=. The caller is left out of the results.
func (h *UserHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if len(query) < minSearchLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query must be at least 2 characters long"})
		return
	}

	users, err := h.users.Search(c.Request.Context(), query)
	if err != nil {
		respondError(c, err, "Server failed to search for users")
		return
	}

	self := userIDFromContext(c)
	filtered := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		if u.ID != self {
			filtered = append(filtered, u)
		}
	}
	c.JSON(http.StatusOK, filtered)
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Server failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}
