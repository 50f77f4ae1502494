package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"messageapp/internal/ids"
	"messageapp/internal/models"
	"messageapp/internal/store"
)

// UserRepository abstracts account persistence.
type UserRepository interface {
	Register(ctx context.Context, reg models.Registration) (models.PublicUser, models.AccessToken, error)
	Authenticate(ctx context.Context, email, password string) (models.PublicUser, models.AccessToken, error)
	VerifyPassword(ctx context.Context, id, password string) error
	FindByID(ctx context.Context, id string) (models.PublicUser, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.PublicUser, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindAll(ctx context.Context) ([]models.PublicUser, error)
	Search(ctx context.Context, term string) ([]models.PublicUser, error)
	Update(ctx context.Context, id string, update models.ProfileUpdate) (models.PublicUser, error)
	UpdatePassword(ctx context.Context, id, newPassword string) error
	Delete(ctx context.Context, id string) error
}

// UserRepo is a snapshot-backed implementation of UserRepository and FriendRepository.
type UserRepo struct {
	store      *store.Store
	now        func() time.Time
	tokenTTL   time.Duration
	bcryptCost int
}

// NewUserRepo constructs a UserRepo. Tokens minted on register and login live for tokenTTL.
func NewUserRepo(s *store.Store, tokenTTL time.Duration, bcryptCost int) *UserRepo {
	return &UserRepo{store: s, now: time.Now, tokenTTL: tokenTTL, bcryptCost: bcryptCost}
}

// Register creates an account and its first access token in one commit.
// Email matching is exact and case-sensitive.
func (r *UserRepo) Register(ctx context.Context, reg models.Registration) (models.PublicUser, models.AccessToken, error) {
	if err := r.store.View(ctx, func(snap *store.Snapshot) error {
		if userIndexByEmail(snap, reg.Email) >= 0 {
			return ErrEmailExists
		}
		return nil
	}); err != nil {
		return models.PublicUser{}, models.AccessToken{}, err
	}

	hash, err := r.hashPassword(reg.Password)
	if err != nil {
		return models.PublicUser{}, models.AccessToken{}, err
	}
	secret, err := ids.Token()
	if err != nil {
		return models.PublicUser{}, models.AccessToken{}, fmt.Errorf("generate token: %w", err)
	}

	var user models.User
	var token models.AccessToken
	err = r.store.Update(ctx, func(snap *store.Snapshot) error {
		if userIndexByEmail(snap, reg.Email) >= 0 {
			return ErrEmailExists
		}
		now := r.now()
		user = models.User{
			ID:                   ids.New(),
			Username:             reg.Username,
			Email:                reg.Email,
			Password:             hash,
			DisplayName:          reg.DisplayName,
			CreatedAt:            now,
			UpdatedAt:            now,
			FriendIDs:            []string{},
			FriendRequestUserIDs: []string{},
		}
		snap.Users = append(snap.Users, user)
		token = appendToken(snap, user.ID, secret, now, r.tokenTTL)
		return nil
	})
	if err != nil {
		return models.PublicUser{}, models.AccessToken{}, err
	}
	return user.Public(), token, nil
}

// Authenticate checks credentials, stamps lastActive and mints a new token.
// Earlier tokens of the same user stay valid.
func (r *UserRepo) Authenticate(ctx context.Context, email, password string) (models.PublicUser, models.AccessToken, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil {
		return models.PublicUser{}, models.AccessToken{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return models.PublicUser{}, models.AccessToken{}, ErrInvalidCredentials
	}

	secret, err := ids.Token()
	if err != nil {
		return models.PublicUser{}, models.AccessToken{}, fmt.Errorf("generate token: %w", err)
	}

	var token models.AccessToken
	err = r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := userIndex(snap, user.ID)
		if i < 0 {
			return ErrInvalidCredentials
		}
		now := r.now()
		snap.Users[i].LastActive = &now
		user = snap.Users[i]
		token = appendToken(snap, user.ID, secret, now, r.tokenTTL)
		return nil
	})
	if err != nil {
		return models.PublicUser{}, models.AccessToken{}, err
	}
	return user.Public(), token, nil
}

// VerifyPassword reports ErrInvalidCredentials when password does not match the stored hash.
func (r *UserRepo) VerifyPassword(ctx context.Context, id, password string) error {
	var hash string
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		i := userIndex(snap, id)
		if i < 0 {
			return ErrUserNotFound
		}
		hash = snap.Users[i].Password
		return nil
	})
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// FindByID returns the profile of a user.
func (r *UserRepo) FindByID(ctx context.Context, id string) (models.PublicUser, error) {
	var user models.PublicUser
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		i := userIndex(snap, id)
		if i < 0 {
			return ErrUserNotFound
		}
		user = snap.Users[i].Public()
		return nil
	})
	return user, err
}

// FindByIDs returns the profiles of every listed user that exists, in store order.
func (r *UserRepo) FindByIDs(ctx context.Context, userIDs []string) ([]models.PublicUser, error) {
	users := []models.PublicUser{}
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		users = publicUsersIn(snap, userIDs)
		return nil
	})
	return users, err
}

// FindByEmail returns the full record including the password hash.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		i := userIndexByEmail(snap, email)
		if i < 0 {
			return ErrUserNotFound
		}
		user = snap.Users[i]
		return nil
	})
	return user, err
}

// FindAll lists every profile.
func (r *UserRepo) FindAll(ctx context.Context) ([]models.PublicUser, error) {
	var users []models.PublicUser
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		users = make([]models.PublicUser, 0, len(snap.Users))
		for _, u := range snap.Users {
			users = append(users, u.Public())
		}
		return nil
	})
	return users, err
}

// Search matches term as a case-insensitive substring of the display name.
func (r *UserRepo) Search(ctx context.Context, term string) ([]models.PublicUser, error) {
	needle := strings.ToLower(term)
	users := []models.PublicUser{}
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		for _, u := range snap.Users {
			if strings.Contains(strings.ToLower(u.DisplayName), needle) {
				users = append(users, u.Public())
			}
		}
		return nil
	})
	return users, err
}

// Update applies a profile edit.
func (r *UserRepo) Update(ctx context.Context, id string, update models.ProfileUpdate) (models.PublicUser, error) {
	var user models.PublicUser
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := userIndex(snap, id)
		if i < 0 {
			return ErrUserNotFound
		}
		if update.DisplayName != nil {
			snap.Users[i].DisplayName = *update.DisplayName
		}
		if update.AvatarURL != nil {
			snap.Users[i].AvatarURL = *update.AvatarURL
		}
		snap.Users[i].UpdatedAt = r.now()
		user = snap.Users[i].Public()
		return nil
	})
	return user, err
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, newPassword string) error {
	hash, err := r.hashPassword(newPassword)
	if err != nil {
		return err
	}
	return r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := userIndex(snap, id)
		if i < 0 {
			return ErrUserNotFound
		}
		snap.Users[i].Password = hash
		snap.Users[i].UpdatedAt = r.now()
		return nil
	})
}

// Delete removes the account, its tokens and every friendship edge or pending
// request that points at it. Conversations and messages are kept.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := userIndex(snap, id)
		if i < 0 {
			return ErrUserNotFound
		}
		snap.Users = slices.Delete(snap.Users, i, i+1)

		now := r.now()
		for j := range snap.Users {
			friends, wasFriend := removeID(snap.Users[j].FriendIDs, id)
			requests, wasRequester := removeID(snap.Users[j].FriendRequestUserIDs, id)
			snap.Users[j].FriendIDs = friends
			snap.Users[j].FriendRequestUserIDs = requests
			if wasFriend || wasRequester {
				snap.Users[j].UpdatedAt = now
			}
		}
		snap.AccessTokens = slices.DeleteFunc(snap.AccessTokens, func(t models.AccessToken) bool {
			return t.UserID == id
		})
		return nil
	})
}

func (r *UserRepo) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func userIndex(snap *store.Snapshot, id string) int {
	return slices.IndexFunc(snap.Users, func(u models.User) bool { return u.ID == id })
}

func userIndexByEmail(snap *store.Snapshot, email string) int {
	return slices.IndexFunc(snap.Users, func(u models.User) bool { return u.Email == email })
}

func publicUsersIn(snap *store.Snapshot, userIDs []string) []models.PublicUser {
	users := []models.PublicUser{}
	for _, u := range snap.Users {
		if slices.Contains(userIDs, u.ID) {
			users = append(users, u.Public())
		}
	}
	return users
}

// removeID drops every occurrence of id and reports whether any was found.
func removeID(list []string, id string) ([]string, bool) {
	n := len(list)
	list = slices.DeleteFunc(list, func(v string) bool { return v == id })
	return list, len(list) != n
}
