package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"messageapp/internal/models"
	"messageapp/internal/repositories"
)

type verifierMock struct{ mock.Mock }

func (m *verifierMock) Verify(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

type lookupMock struct{ mock.Mock }

func (m *lookupMock) FindByID(ctx context.Context, id string) (models.PublicUser, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.PublicUser), args.Error(1)
}

func setupRouter(tokens TokenVerifier, users UserLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Auth(tokens, users), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetString(UserIDKey), "token": c.GetString(TokenKey)})
	})
	return r
}

func TestAuthMissingToken(t *testing.T) {
	router := setupRouter(new(verifierMock), new(lookupMock))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFromCookie(t *testing.T) {
	tokens := new(verifierMock)
	users := new(lookupMock)
	router := setupRouter(tokens, users)

	tokens.On("Verify", mock.Anything, "cookie-token").Return("u1", nil).Once()
	users.On("FindByID", mock.Anything, "u1").Return(models.PublicUser{ID: "u1"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userID":"u1","token":"cookie-token"}`, rec.Body.String())
	tokens.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestAuthFromBearerHeader(t *testing.T) {
	tokens := new(verifierMock)
	users := new(lookupMock)
	router := setupRouter(tokens, users)

	tokens.On("Verify", mock.Anything, "abc").Return("u2", nil).Once()
	users.On("FindByID", mock.Anything, "u2").Return(models.PublicUser{ID: "u2"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	tokens := new(verifierMock)
	router := setupRouter(tokens, new(lookupMock))
	tokens.On("Verify", mock.Anything, "stale").Return("", repositories.ErrTokenExpired).Once()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsDeletedUser(t *testing.T) {
	tokens := new(verifierMock)
	users := new(lookupMock)
	router := setupRouter(tokens, users)
	tokens.On("Verify", mock.Anything, "t").Return("gone", nil).Once()
	users.On("FindByID", mock.Anything, "gone").Return(models.PublicUser{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthStoreFailureIsServerError(t *testing.T) {
	tokens := new(verifierMock)
	users := new(lookupMock)
	router := setupRouter(tokens, users)
	tokens.On("Verify", mock.Anything, "expired").Return("", fmt.Errorf("persist snapshot: %w", assert.AnError)).Once()
	tokens.On("Verify", mock.Anything, "ok").Return("u1", nil).Once()
	users.On("FindByID", mock.Anything, "u1").Return(models.PublicUser{}, assert.AnError).Once()

	for _, token := range []string{"expired", "ok"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code, token)
	}
	tokens.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestTokenFromRequestIgnoresOtherSchemes(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwdw==")
	assert.Empty(t, TokenFromRequest(req))
}
