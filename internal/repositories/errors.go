package repositories

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	// ErrNotFound reports an expected absence.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a request that clashes with current state.
	ErrConflict = errors.New("conflict")
	// ErrInvariant reports a request that would break a structural rule.
	ErrInvariant = errors.New("invariant violation")
)

var (
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("conversation %w", ErrNotFound)
	ErrMessageNotFound      = fmt.Errorf("message %w", ErrNotFound)
	ErrTokenNotFound        = fmt.Errorf("token %w", ErrNotFound)
	ErrTokenExpired         = fmt.Errorf("token expired: %w", ErrNotFound)
	ErrInvalidCredentials   = fmt.Errorf("invalid email or password: %w", ErrNotFound)
	ErrNoPendingRequest     = fmt.Errorf("friend request %w", ErrNotFound)
	ErrNotFriends           = fmt.Errorf("friendship %w", ErrNotFound)

	ErrEmailExists       = fmt.Errorf("email already exists: %w", ErrConflict)
	ErrSelfFriendRequest = fmt.Errorf("cannot befriend yourself: %w", ErrConflict)
	ErrAlreadyFriends    = fmt.Errorf("users are already friends: %w", ErrConflict)
	ErrRequestPending    = fmt.Errorf("friend request already pending: %w", ErrConflict)

	ErrDirectNeedsTwo  = fmt.Errorf("direct conversations require exactly two distinct users: %w", ErrInvariant)
	ErrGroupNeedsTwo   = fmt.Errorf("group conversations require at least two users: %w", ErrInvariant)
	ErrDirectImmutable = fmt.Errorf("direct conversation membership cannot change: %w", ErrInvariant)
)
