package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messageapp/internal/models"
)

func TestUpdatePersistsOnceAndSwaps(t *testing.T) {
	backend := NewMemoryBackend()
	s, err := Open(context.Background(), backend)
	require.NoError(t, err)

	err = s.Update(context.Background(), func(snap *Snapshot) error {
		snap.Users = append(snap.Users, models.User{ID: "u1"})
		snap.Users = append(snap.Users, models.User{ID: "u2"})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Saves())

	require.NoError(t, s.View(context.Background(), func(snap *Snapshot) error {
		assert.Len(t, snap.Users, 2)
		return nil
	}))
}

func TestUpdateNoChangeSkipsWrite(t *testing.T) {
	backend := NewMemoryBackend()
	s, err := Open(context.Background(), backend)
	require.NoError(t, err)

	err = s.Update(context.Background(), func(snap *Snapshot) error {
		snap.Users = append(snap.Users, models.User{ID: "ghost"})
		return ErrNoChange
	})
	require.NoError(t, err)
	assert.Zero(t, backend.Saves())

	require.NoError(t, s.View(context.Background(), func(snap *Snapshot) error {
		assert.Empty(t, snap.Users)
		return nil
	}))
}

func TestUpdateErrorLeavesStateUntouched(t *testing.T) {
	backend := NewMemoryBackend()
	s, err := Open(context.Background(), backend)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.Update(context.Background(), func(snap *Snapshot) error {
		snap.Users = append(snap.Users, models.User{ID: "u1"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	backend.FailWith(assert.AnError)
	err = s.Update(context.Background(), func(snap *Snapshot) error {
		snap.Users = append(snap.Users, models.User{ID: "u2"})
		return nil
	})
	require.ErrorIs(t, err, assert.AnError)

	require.NoError(t, s.View(context.Background(), func(snap *Snapshot) error {
		assert.Empty(t, snap.Users)
		return nil
	}))
}

func TestCloneIsDeep(t *testing.T) {
	snap := Empty()
	snap.Users = append(snap.Users, models.User{ID: "u1", FriendIDs: []string{"u2"}})
	snap.Conversations = append(snap.Conversations, models.Conversation{ID: "c1", ParticipantIDs: []string{"u1", "u2"}})
	snap.Messages = append(snap.Messages, models.Message{ID: "m1", Metadata: map[string]any{"k": "v"}})

	cp := snap.Clone()
	cp.Users[0].FriendIDs[0] = "changed"
	cp.Conversations[0].ParticipantIDs[0] = "changed"
	cp.Messages[0].Metadata["k"] = "changed"
	cp.Messages[0].Read = append(cp.Messages[0].Read, models.ReadReceipt{UserID: "u1"})

	assert.Equal(t, "u2", snap.Users[0].FriendIDs[0])
	assert.Equal(t, "u1", snap.Conversations[0].ParticipantIDs[0])
	assert.Equal(t, "v", snap.Messages[0].Metadata["k"])
	assert.Empty(t, snap.Messages[0].Read)
}

func TestFileBackendCreatesDefaultSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "db.json")
	backend := NewFileBackend(path)

	snap, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Users)
	assert.NotNil(t, snap.AccessTokens)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"accessToken": []`)
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(context.Background(), NewFileBackend(path))
	require.NoError(t, err)

	require.NoError(t, s.Update(context.Background(), func(snap *Snapshot) error {
		snap.Users = append(snap.Users, models.User{ID: "u1", Email: "a@x.com"})
		return nil
	}))

	reopened, err := Open(context.Background(), NewFileBackend(path))
	require.NoError(t, err)
	require.NoError(t, reopened.View(context.Background(), func(snap *Snapshot) error {
		require.Len(t, snap.Users, 1)
		assert.Equal(t, "a@x.com", snap.Users[0].Email)
		assert.NotNil(t, snap.Users[0].FriendIDs)
		return nil
	}))
}

func TestFileBackendRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(context.Background(), NewFileBackend(path))
	require.Error(t, err)
}
