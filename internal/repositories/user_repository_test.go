package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messageapp/internal/models"
)

func TestRegisterIssuesTokenInOneCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, token, err := env.users.Register(ctx, models.Registration{
		Username: "alice", Email: "a@x.com", Password: "pw", DisplayName: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, env.backend.Saves())
	assert.Equal(t, user.ID, token.UserID)
	assert.Len(t, token.Token, 64)
	assert.Equal(t, env.clock.Now().Add(DefaultTokenTTL), token.ExpiresAt)
	assert.Empty(t, user.FriendIDs)

	userID, err := env.tokens.Verify(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, _, err := env.users.Register(ctx, models.Registration{Username: "u1", Email: "a@x.com", Password: "pw1", DisplayName: "One"})
	require.NoError(t, err)

	_, _, err = env.users.Register(ctx, models.Registration{Username: "u2", Email: "a@x.com", Password: "pw2", DisplayName: "Two"})
	require.ErrorIs(t, err, ErrEmailExists)
	assert.ErrorIs(t, err, ErrConflict)

	all, err := env.users.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, first, all[0])

	_, _, err = env.users.Authenticate(ctx, "a@x.com", "pw1")
	assert.NoError(t, err)
}

func TestRegisterEmailIsCaseSensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.users.Register(ctx, models.Registration{Username: "u1", Email: "a@x.com", Password: "pw", DisplayName: "One"})
	require.NoError(t, err)
	_, _, err = env.users.Register(ctx, models.Registration{Username: "u2", Email: "A@x.com", Password: "pw", DisplayName: "Two"})
	assert.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	_, _, err := env.users.Authenticate(ctx, "alice@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = env.users.Authenticate(ctx, "nobody@x.com", "secret-alice")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	env.clock.Advance(time.Minute)
	user, token, err := env.users.Authenticate(ctx, "alice@x.com", "secret-alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, token.UserID)
	require.NotNil(t, user.LastActive)
	assert.Equal(t, env.clock.Now(), *user.LastActive)
}

func TestLoginKeepsEarlierTokensValid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, first, err := env.users.Register(ctx, models.Registration{Username: "a", Email: "a@x.com", Password: "pw", DisplayName: "A"})
	require.NoError(t, err)
	_, second, err := env.users.Authenticate(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	for _, tok := range []string{first.Token, second.Token} {
		_, err := env.tokens.Verify(ctx, tok)
		assert.NoError(t, err)
	}
}

func TestPublicUserHasNoPassword(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	full, err := env.users.FindByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, full.Password)
	assert.NotEqual(t, "secret-alice", full.Password)

	found, err := env.users.FindByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, found.Email)
}

func TestFindByIDMissing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByIDsSkipsUnknown(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	users, err := env.users.FindByIDs(context.Background(), []string{bob.ID, "ghost", alice.ID})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, alice.ID, users[0].ID)
	assert.Equal(t, bob.ID, users[1].ID)
}

func TestSearchByDisplayName(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice")
	env.register(t, "Malika")
	env.register(t, "bob")

	users, err := env.users.Search(context.Background(), "ALI")
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUpdateProfileAndPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	name := "Alice L."
	env.clock.Advance(time.Second)
	updated, err := env.users.Update(ctx, alice.ID, models.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.DisplayName)
	assert.True(t, updated.UpdatedAt.After(alice.UpdatedAt))

	require.NoError(t, env.users.UpdatePassword(ctx, alice.ID, "new-pw"))
	assert.ErrorIs(t, env.users.VerifyPassword(ctx, alice.ID, "secret-alice"), ErrInvalidCredentials)
	assert.NoError(t, env.users.VerifyPassword(ctx, alice.ID, "new-pw"))

	_, err = env.users.Update(ctx, "ghost", models.ProfileUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteCascadesEdgesAndTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")

	require.NoError(t, env.users.SendFriendRequest(ctx, alice.ID, bob.ID))
	_, err := env.users.AcceptFriendRequest(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.NoError(t, env.users.SendFriendRequest(ctx, alice.ID, carol.ID))

	require.NoError(t, env.users.Delete(ctx, alice.ID))

	_, err = env.users.FindByID(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	b, err := env.users.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, b.FriendIDs)
	c, err := env.users.FindByID(ctx, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, c.FriendRequestUserIDs)

	n, err := env.tokens.RevokeAllForUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	convs, err := env.convs.FindByUserID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, convs, 1, "conversations survive account deletion")
}

func TestUpdateFailsWhenPersistFails(t *testing.T) {
	env := newTestEnv(t)
	env.backend.FailWith(errors.New("disk full"))

	_, _, err := env.users.Register(context.Background(), models.Registration{Username: "a", Email: "a@x.com", Password: "pw", DisplayName: "A"})
	require.Error(t, err)

	users, err := env.users.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}
