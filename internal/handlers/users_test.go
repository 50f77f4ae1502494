package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messageapp/internal/mocks"
	"messageapp/internal/models"
	"messageapp/internal/repositories"
)

func setupUserRouter(h *UserHandler) *gin.Engine {
	r := newRouter()
	r.GET("/users/me", h.Me)
	r.PUT("/users/me", h.UpdateMe)
	r.PUT("/users/password", h.ChangePassword)
	r.GET("/users/search", h.Search)
	r.GET("/users/:id", h.Get)
	return r
}

func TestMeReturnsAuthenticatedProfile(t *testing.T) {
	router := setupUserRouter(NewUserHandler(new(mocks.UserRepositoryMock), nil))

	rec := doRequest(router, http.MethodGet, "/users/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, testUserID, body["id"])
}

func TestUpdateMe(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupUserRouter(NewUserHandler(users, nil))

	name := "New Name"
	users.On("Update", mock.Anything, testUserID, models.ProfileUpdate{DisplayName: &name}).
		Return(models.PublicUser{ID: testUserID, DisplayName: name}, nil).Once()

	rec := doRequest(router, http.MethodPut, "/users/me", `{"displayName":"New Name"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	users.AssertExpectations(t)
}

func TestSearchUsersExcludesCaller(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupUserRouter(NewUserHandler(users, nil))

	users.On("Search", mock.Anything, "al").
		Return([]models.PublicUser{{ID: testUserID}, {ID: "u2"}}, nil).Once()

	rec := doRequest(router, http.MethodGet, "/users/search?query=al", "")
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]models.PublicUser](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, "u2", found[0].ID)
}

func TestSearchUsersShortQuery(t *testing.T) {
	router := setupUserRouter(NewUserHandler(new(mocks.UserRepositoryMock), nil))

	rec := doRequest(router, http.MethodGet, "/users/search?query=a", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangePassword(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupUserRouter(NewUserHandler(users, nil))

	users.On("VerifyPassword", mock.Anything, testUserID, "wrong").Return(repositories.ErrInvalidCredentials).Once()
	rec := doRequest(router, http.MethodPut, "/users/password", `{"oldPassword":"wrong","newPassword":"n"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	users.On("VerifyPassword", mock.Anything, testUserID, "old").Return(nil).Once()
	users.On("UpdatePassword", mock.Anything, testUserID, "new").Return(nil).Once()
	rec = doRequest(router, http.MethodPut, "/users/password", `{"oldPassword":"old","newPassword":"new"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	users.AssertExpectations(t)
}

func TestGetUserNotFound(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupUserRouter(NewUserHandler(users, nil))

	users.On("FindByID", mock.Anything, "ghost").Return(models.PublicUser{}, repositories.ErrUserNotFound).Once()

	rec := doRequest(router, http.MethodGet, "/users/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
