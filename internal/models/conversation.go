package models

import (
	"slices"
	"time"
)

// Conversation is either a direct conversation between exactly two users or a named group.
type Conversation struct {
	ID             string     `json:"id"`
	Name           string     `json:"name,omitempty"`
	ParticipantIDs []string   `json:"participantIds"`
	IsGroup        bool       `json:"isGroup"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastMessageAt  *time.Time `json:"lastMessageAt,omitempty"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	return slices.Contains(c.ParticipantIDs, userID)
}

// ActivityAt is the sort key for recent conversations.
func (c Conversation) ActivityAt() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.UpdatedAt
}

// ConversationSummary is a conversation enriched with the other participants'
// profiles and its newest message.
type ConversationSummary struct {
	Conversation
	OtherParticipants []PublicUser `json:"otherParticipants"`
	LastMessage       *Message     `json:"lastMessage,omitempty"`
}

// ConversationEvent is broadcast over websocket connections subscribed to a conversation.
type ConversationEvent struct {
	Type      string       `json:"type"`
	Message   *Message     `json:"message,omitempty"`
	MessageID string       `json:"messageId,omitempty"`
	Receipt   *ReadReceipt `json:"receipt,omitempty"`
}
