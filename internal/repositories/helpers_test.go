package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"messageapp/internal/models"
	"messageapp/internal/store"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type testEnv struct {
	backend *store.MemoryBackend
	store   *store.Store
	clock   *fakeClock
	users   *UserRepo
	tokens  *TokenRepo
	convs   *ConversationRepo
	msgs    *MessageRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := store.NewMemoryBackend()
	s, err := store.Open(context.Background(), backend)
	require.NoError(t, err)

	clock := newFakeClock()
	env := &testEnv{
		backend: backend,
		store:   s,
		clock:   clock,
		users:   NewUserRepo(s, DefaultTokenTTL, bcrypt.MinCost),
		tokens:  NewTokenRepo(s),
		convs:   NewConversationRepo(s),
		msgs:    NewMessageRepo(s),
	}
	env.users.now = clock.Now
	env.tokens.now = clock.Now
	env.convs.now = clock.Now
	env.msgs.now = clock.Now
	return env
}

func (e *testEnv) register(t *testing.T, name string) models.PublicUser {
	t.Helper()
	user, _, err := e.users.Register(context.Background(), models.Registration{
		Username:    name,
		Email:       name + "@x.com",
		Password:    "secret-" + name,
		DisplayName: name,
	})
	require.NoError(t, err)
	return user
}
