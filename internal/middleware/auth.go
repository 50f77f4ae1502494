package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messageapp/internal/models"
	"messageapp/internal/repositories"
)

// CookieName is the cookie carrying the access token for browser clients.
const CookieName = "accessToken"

// Context keys set by Auth.
const (
	UserIDKey = "userID"
	TokenKey  = "token"
	UserKey   = "user"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id string) (models.PublicUser, error)
}

// TokenFromRequest reads the access token from the cookie, falling back to an
// "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Auth rejects requests without a valid token whose owner still exists. Lookup
// failures other than absence are server errors, not authentication failures.
func Auth(tokens TokenVerifier, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		userID, err := tokens.Verify(c.Request.Context(), token)
		if err != nil {
			abortLookup(c, err, "invalid or expired token")
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			abortLookup(c, err, "user not found")
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(TokenKey, token)
		c.Set(UserKey, user)
		c.Next()
	}
}

func abortLookup(c *gin.Context, err error, unauthorized string) {
	if errors.Is(err, repositories.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorized})
		return
	}
	log.Printf("auth lookup failed path=%s: %v", c.Request.URL.Path, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server failed to authenticate request"})
}
