package models

import "time"

// User is a stored account. Password holds the bcrypt hash.
type User struct {
	ID                   string     `json:"id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	Password             string     `json:"password"`
	DisplayName          string     `json:"displayName"`
	AvatarURL            string     `json:"avatarUrl,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	LastActive           *time.Time `json:"lastActive,omitempty"`
	FriendIDs            []string   `json:"friendIds"`
	FriendRequestUserIDs []string   `json:"friendRequestUserIds"`
}

// PublicUser is a User without its password hash; it is what leaves the repository layer.
type PublicUser struct {
	ID                   string     `json:"id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	DisplayName          string     `json:"displayName"`
	AvatarURL            string     `json:"avatarUrl,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	LastActive           *time.Time `json:"lastActive,omitempty"`
	FriendIDs            []string   `json:"friendIds"`
	FriendRequestUserIDs []string   `json:"friendRequestUserIds"`
}

// Public strips the password hash.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:                   u.ID,
		Username:             u.Username,
		Email:                u.Email,
		DisplayName:          u.DisplayName,
		AvatarURL:            u.AvatarURL,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
		LastActive:           u.LastActive,
		FriendIDs:            append([]string{}, u.FriendIDs...),
		FriendRequestUserIDs: append([]string{}, u.FriendRequestUserIDs...),
	}
}

// ProfileUpdate lists the user fields a profile edit may change. Nil fields are left alone.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

// Registration is the input to account creation.
type Registration struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName" binding:"required"`
}
