package repositories

import (
	"context"
	"fmt"
	"slices"
	"time"

	"messageapp/internal/ids"
	"messageapp/internal/models"
	"messageapp/internal/store"
)

// DefaultTokenTTL is how long a freshly issued token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenRepository issues and checks bearer tokens.
type TokenRepository interface {
	Issue(ctx context.Context, userID string, ttl time.Duration) (models.AccessToken, error)
	Verify(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
	SweepExpired(ctx context.Context) (int, error)
}

// TokenRepo is a snapshot-backed TokenRepository.
type TokenRepo struct {
	store *store.Store
	now   func() time.Time
}

// NewTokenRepo constructs a TokenRepo.
func NewTokenRepo(s *store.Store) *TokenRepo {
	return &TokenRepo{store: s, now: time.Now}
}

// Issue mints a 256-bit random token for userID expiring after ttl.
func (r *TokenRepo) Issue(ctx context.Context, userID string, ttl time.Duration) (models.AccessToken, error) {
	secret, err := ids.Token()
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("generate token: %w", err)
	}
	var token models.AccessToken
	err = r.store.Update(ctx, func(snap *store.Snapshot) error {
		token = appendToken(snap, userID, secret, r.now(), ttl)
		return nil
	})
	return token, err
}

// Verify returns the user id bound to token. An expired token is deleted on
// sight and reported as ErrTokenExpired.
func (r *TokenRepo) Verify(ctx context.Context, token string) (string, error) {
	var found models.AccessToken
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		i := tokenIndex(snap, token)
		if i < 0 {
			return ErrTokenNotFound
		}
		found = snap.AccessTokens[i]
		return nil
	})
	if err != nil {
		return "", err
	}
	if !found.Expired(r.now()) {
		return found.UserID, nil
	}

	if _, err := r.Revoke(ctx, token); err != nil {
		return "", err
	}
	return "", ErrTokenExpired
}

// Revoke deletes one token and reports whether it existed.
func (r *TokenRepo) Revoke(ctx context.Context, token string) (bool, error) {
	var found bool
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := tokenIndex(snap, token)
		if i < 0 {
			return store.ErrNoChange
		}
		snap.AccessTokens = slices.Delete(snap.AccessTokens, i, i+1)
		found = true
		return nil
	})
	return found, err
}

// RevokeAllForUser deletes every token of userID and returns how many were removed.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	return r.deleteWhere(ctx, func(t models.AccessToken) bool { return t.UserID == userID })
}

// SweepExpired deletes every token whose expiry has passed.
func (r *TokenRepo) SweepExpired(ctx context.Context) (int, error) {
	now := r.now()
	return r.deleteWhere(ctx, func(t models.AccessToken) bool { return t.Expired(now) })
}

func (r *TokenRepo) deleteWhere(ctx context.Context, match func(models.AccessToken) bool) (int, error) {
	var removed int
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		before := len(snap.AccessTokens)
		snap.AccessTokens = slices.DeleteFunc(snap.AccessTokens, match)
		removed = before - len(snap.AccessTokens)
		if removed == 0 {
			return store.ErrNoChange
		}
		return nil
	})
	return removed, err
}

func appendToken(snap *store.Snapshot, userID, secret string, now time.Time, ttl time.Duration) models.AccessToken {
	token := models.AccessToken{
		UserID:    userID,
		Token:     secret,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	snap.AccessTokens = append(snap.AccessTokens, token)
	return token
}

func tokenIndex(snap *store.Snapshot, token string) int {
	return slices.IndexFunc(snap.AccessTokens, func(t models.AccessToken) bool { return t.Token == token })
}
