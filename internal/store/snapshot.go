package store

import (
	"maps"

	"messageapp/internal/models"
)

// Snapshot is the whole dataset. It is persisted as one document.
type Snapshot struct {
	Users         []models.User         `json:"users"`
	Messages      []models.Message      `json:"messages"`
	Conversations []models.Conversation `json:"conversations"`
	AccessTokens  []models.AccessToken  `json:"accessToken"`
}

// Empty returns the default schema used when no prior data exists.
func Empty() *Snapshot {
	return &Snapshot{
		Users:         []models.User{},
		Messages:      []models.Message{},
		Conversations: []models.Conversation{},
		AccessTokens:  []models.AccessToken{},
	}
}

// Clone returns a deep copy; mutating the copy never touches the receiver.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Users:         make([]models.User, len(s.Users)),
		Messages:      make([]models.Message, len(s.Messages)),
		Conversations: make([]models.Conversation, len(s.Conversations)),
		AccessTokens:  append([]models.AccessToken{}, s.AccessTokens...),
	}
	for i, u := range s.Users {
		u.FriendIDs = append([]string{}, u.FriendIDs...)
		u.FriendRequestUserIDs = append([]string{}, u.FriendRequestUserIDs...)
		if u.LastActive != nil {
			at := *u.LastActive
			u.LastActive = &at
		}
		out.Users[i] = u
	}
	for i, c := range s.Conversations {
		c.ParticipantIDs = append([]string{}, c.ParticipantIDs...)
		if c.LastMessageAt != nil {
			at := *c.LastMessageAt
			c.LastMessageAt = &at
		}
		out.Conversations[i] = c
	}
	for i, m := range s.Messages {
		m.Read = append([]models.ReadReceipt{}, m.Read...)
		if m.Attachments != nil {
			m.Attachments = append([]models.Attachment{}, m.Attachments...)
		}
		m.Metadata = maps.Clone(m.Metadata)
		out.Messages[i] = m
	}
	return out
}

// normalize replaces nil collections left by older or hand-edited documents.
func (s *Snapshot) normalize() {
	if s.Users == nil {
		s.Users = []models.User{}
	}
	if s.Messages == nil {
		s.Messages = []models.Message{}
	}
	if s.Conversations == nil {
		s.Conversations = []models.Conversation{}
	}
	if s.AccessTokens == nil {
		s.AccessTokens = []models.AccessToken{}
	}
	for i := range s.Users {
		if s.Users[i].FriendIDs == nil {
			s.Users[i].FriendIDs = []string{}
		}
		if s.Users[i].FriendRequestUserIDs == nil {
			s.Users[i].FriendRequestUserIDs = []string{}
		}
	}
	for i := range s.Conversations {
		if s.Conversations[i].ParticipantIDs == nil {
			s.Conversations[i].ParticipantIDs = []string{}
		}
	}
	for i := range s.Messages {
		if s.Messages[i].Read == nil {
			s.Messages[i].Read = []models.ReadReceipt{}
		}
		if s.Messages[i].Metadata == nil {
			s.Messages[i].Metadata = map[string]any{}
		}
	}
}
