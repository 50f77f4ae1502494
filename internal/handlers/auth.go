package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"messageapp/internal/middleware"
	"messageapp/internal/models"
	"messageapp/internal/repositories"
	"messageapp/internal/telemetry"
	"messageapp/internal/ws"
)

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	users        repositories.UserRepository
	tokens       repositories.TokenRepository
	hub          *ws.Hub
	audit        *telemetry.AuditEmitter
	cookieMaxAge time.Duration
	cookieSecure bool
}

func NewAuthHandler(users repositories.UserRepository, tokens repositories.TokenRepository, hub *ws.Hub, audit *telemetry.AuditEmitter, tokenTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		users:        users,
		tokens:       tokens,
		hub:          hub,
		audit:        audit,
		cookieMaxAge: tokenTTL,
		cookieSecure: cookieSecure,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	user, token, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		emitAudit(h.audit, c, telemetry.LevelWarn, "auth.register", "registration rejected")
		respondError(c, err, "Server failed during registration")
		return
	}

	h.setCookie(c, token.Token)
	c.Set(middleware.UserIDKey, user.ID)
	emitAudit(h.audit, c, telemetry.LevelInfo, "auth.register", "user registered")
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token.Token, "message": "Registration successful"})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	user, token, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidCredentials) {
			emitAudit(h.audit, c, telemetry.LevelWarn, "auth.login", "invalid credentials")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		respondError(c, err, "Server failed during login")
		return
	}

	h.setCookie(c, token.Token)
	c.Set(middleware.UserIDKey, user.ID)
	emitAudit(h.audit, c, telemetry.LevelInfo, "auth.login", "login succeeded")
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token.Token, "message": "Login successful"})
}

// Logout handles POST /auth/logout and revokes only the presented token.
// Websockets opened with that token are closed too.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.TokenKey)
	if _, err := h.tokens.Revoke(c.Request.Context(), token); err != nil {
		respondError(c, err, "Server failed during logout")
		return
	}
	h.hub.DisconnectToken(token)
	h.clearCookie(c)
	emitAudit(h.audit, c, telemetry.LevelInfo, "auth.logout", "logged out")
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// LogoutAll handles POST /auth/logout-all.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	revoked, err := h.tokens.RevokeAllForUser(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		respondError(c, err, "Server failed during logout")
		return
	}
	h.hub.DisconnectUser(userIDFromContext(c))
	h.clearCookie(c)
	emitAudit(h.audit, c, telemetry.LevelInfo, "auth.logout_all", "revoked every session")
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful", "revoked": revoked})
}

// Verify handles GET /auth/verify. It never answers 401; an unusable token
// yields valid=false.
func (h *AuthHandler) Verify(c *gin.Context) {
	token := middleware.TokenFromRequest(c.Request)
	if token == "" {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}

	userID, err := h.tokens.Verify(c.Request.Context(), token)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		respondError(c, err, "Server failed during token verification")
		return
	}
	var user models.PublicUser
	if err == nil {
		user, err = h.users.FindByID(c.Request.Context(), userID)
	}
	if err != nil {
		h.clearCookie(c)
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "user": user})
}

func (h *AuthHandler) setCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, token, int(h.cookieMaxAge.Seconds()), "/", "", h.cookieSecure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, "", -1, "/", "", h.cookieSecure, true)
}
