package models

import "time"

// AttachmentType classifies a message attachment.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentVideo AttachmentType = "video"
	AttachmentAudio AttachmentType = "audio"
	AttachmentOther AttachmentType = "other"
)

// Valid reports whether t is one of the known attachment types.
func (t AttachmentType) Valid() bool {
	switch t {
	case AttachmentImage, AttachmentVideo, AttachmentAudio, AttachmentOther:
		return true
	}
	return false
}

// Attachment describes a file attached to a message.
type Attachment struct {
	ID        string         `json:"id"`
	MessageID string         `json:"messageId"`
	Type      AttachmentType `json:"type"`
	URL       string         `json:"url"`
	Name      string         `json:"name"`
	Size      int64          `json:"size"`
}

// ReadReceipt records when a user read a message.
type ReadReceipt struct {
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}

// Message is a single entry in a conversation.
type Message struct {
	ID             string         `json:"id"`
	SenderID       string         `json:"senderId"`
	ConversationID string         `json:"conversationId"`
	Content        string         `json:"content"`
	Attachments    []Attachment   `json:"attachments,omitempty"`
	Metadata       map[string]any `json:"metadata"`
	Read           []ReadReceipt  `json:"read"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ReadBy reports whether userID already has a receipt on the message.
func (m Message) ReadBy(userID string) bool {
	for _, r := range m.Read {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// NewMessage is the input to sending a message.
type NewMessage struct {
	SenderID       string
	ConversationID string
	Content        string
	Attachments    []Attachment
	Metadata       map[string]any
}

// MessageUpdate lists the message fields an edit may change. Nil fields are left alone.
type MessageUpdate struct {
	Content     *string        `json:"content"`
	Attachments []Attachment   `json:"attachments"`
	Metadata    map[string]any `json:"metadata"`
}
