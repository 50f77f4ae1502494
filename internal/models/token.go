package models

import "time"

// AccessToken is a bearer credential bound to one user until ExpiresAt.
type AccessToken struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the token is past its expiry at now.
func (t AccessToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
