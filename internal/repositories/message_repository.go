package repositories

import (
	"context"
	"slices"
	"strings"
	"time"

	"messageapp/internal/ids"
	"messageapp/internal/models"
	"messageapp/internal/store"
)

// DefaultPageSize caps FindByConversationID when the caller passes no limit.
const DefaultPageSize = 50

// MessageRepository abstracts the message log.
type MessageRepository interface {
	Create(ctx context.Context, in models.NewMessage) (models.Message, error)
	FindByID(ctx context.Context, id string) (models.Message, error)
	FindByConversationID(ctx context.Context, conversationID string, limit int, before *time.Time) ([]models.Message, error)
	LatestByConversations(ctx context.Context, conversationIDs []string, limit int) (map[string][]models.Message, error)
	Update(ctx context.Context, id string, update models.MessageUpdate) (models.Message, error)
	Delete(ctx context.Context, id string) error
	MarkAsRead(ctx context.Context, id, userID string) (models.Message, error)
	MarkAllAsRead(ctx context.Context, conversationID, userID string) (models.ReadReceipt, int, error)
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
	Search(ctx context.Context, term, conversationID string) ([]models.Message, error)
}

// MessageRepo is a snapshot-backed MessageRepository.
type MessageRepo struct {
	store *store.Store
	now   func() time.Time
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(s *store.Store) *MessageRepo {
	return &MessageRepo{store: s, now: time.Now}
}

// Create appends a message and advances the conversation's lastMessageAt in the
// same commit. A missing conversation is not an error.
func (r *MessageRepo) Create(ctx context.Context, in models.NewMessage) (models.Message, error) {
	var msg models.Message
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		msg = appendMessage(snap, in, r.now())
		return nil
	})
	return msg, err
}

func (r *MessageRepo) FindByID(ctx context.Context, id string) (models.Message, error) {
	var msg models.Message
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		i := messageIndex(snap, id)
		if i < 0 {
			return ErrMessageNotFound
		}
		msg = snap.Messages[i]
		return nil
	})
	return msg, err
}

// FindByConversationID returns up to limit messages, newest first. With before
// set only messages created strictly earlier are considered, so callers page
// backwards by passing the oldest createdAt they have seen.
func (r *MessageRepo) FindByConversationID(ctx context.Context, conversationID string, limit int, before *time.Time) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var msgs []models.Message
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		msgs = newestFirst(snap.Messages, func(m models.Message) bool {
			if m.ConversationID != conversationID {
				return false
			}
			return before == nil || m.CreatedAt.Before(*before)
		})
		return nil
	})
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, err
}

// LatestByConversations returns the newest limit messages of each listed
// conversation. Conversations without messages are absent from the map.
func (r *MessageRepo) LatestByConversations(ctx context.Context, conversationIDs []string, limit int) (map[string][]models.Message, error) {
	if limit <= 0 {
		limit = 1
	}
	latest := make(map[string][]models.Message, len(conversationIDs))
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		all := newestFirst(snap.Messages, func(m models.Message) bool {
			return slices.Contains(conversationIDs, m.ConversationID)
		})
		for _, m := range all {
			if len(latest[m.ConversationID]) < limit {
				latest[m.ConversationID] = append(latest[m.ConversationID], m)
			}
		}
		return nil
	})
	return latest, err
}

// Update merges the non-nil fields of update and bumps updatedAt. Identity,
// sender, conversation and createdAt never change.
func (r *MessageRepo) Update(ctx context.Context, id string, update models.MessageUpdate) (models.Message, error) {
	var msg models.Message
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := messageIndex(snap, id)
		if i < 0 {
			return ErrMessageNotFound
		}
		m := &snap.Messages[i]
		if update.Content != nil {
			m.Content = *update.Content
		}
		if update.Attachments != nil {
			m.Attachments = bindAttachments(update.Attachments, m.ID)
		}
		if update.Metadata != nil {
			m.Metadata = update.Metadata
		}
		m.UpdatedAt = r.now()
		msg = *m
		return nil
	})
	return msg, err
}

func (r *MessageRepo) Delete(ctx context.Context, id string) error {
	return r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := messageIndex(snap, id)
		if i < 0 {
			return ErrMessageNotFound
		}
		snap.Messages = slices.Delete(snap.Messages, i, i+1)
		return nil
	})
}

// MarkAsRead adds a receipt for userID unless one already exists.
func (r *MessageRepo) MarkAsRead(ctx context.Context, id, userID string) (models.Message, error) {
	var msg models.Message
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := messageIndex(snap, id)
		if i < 0 {
			return ErrMessageNotFound
		}
		m := &snap.Messages[i]
		if m.ReadBy(userID) {
			msg = *m
			return store.ErrNoChange
		}
		m.Read = append(m.Read, models.ReadReceipt{UserID: userID, At: r.now()})
		msg = *m
		return nil
	})
	return msg, err
}

// MarkAllAsRead adds receipts for userID to every unread message of the
// conversation and returns how many were added.
func (r *MessageRepo) MarkAllAsRead(ctx context.Context, conversationID, userID string) (models.ReadReceipt, int, error) {
	var count int
	receipt := models.ReadReceipt{UserID: userID}
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		receipt.At = r.now()
		for i := range snap.Messages {
			m := &snap.Messages[i]
			if m.ConversationID != conversationID || m.ReadBy(userID) {
				continue
			}
			m.Read = append(m.Read, receipt)
			count++
		}
		if count == 0 {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return models.ReadReceipt{}, 0, err
	}
	if count == 0 {
		return models.ReadReceipt{}, 0, nil
	}
	return receipt, count, nil
}

func (r *MessageRepo) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	var count int
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		for _, m := range snap.Messages {
			if m.ConversationID == conversationID && !m.ReadBy(userID) {
				count++
			}
		}
		return nil
	})
	return count, err
}

// Search matches term as a case-insensitive substring of message content,
// optionally within one conversation. Results are newest first.
func (r *MessageRepo) Search(ctx context.Context, term, conversationID string) ([]models.Message, error) {
	needle := strings.ToLower(term)
	var msgs []models.Message
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		msgs = newestFirst(snap.Messages, func(m models.Message) bool {
			if conversationID != "" && m.ConversationID != conversationID {
				return false
			}
			return strings.Contains(strings.ToLower(m.Content), needle)
		})
		return nil
	})
	return msgs, err
}

// appendMessage stamps and stores a message. Within a conversation creation
// times strictly increase: a clock reading at or before lastMessageAt is moved
// one nanosecond past it.
func appendMessage(snap *store.Snapshot, in models.NewMessage, now time.Time) models.Message {
	conv := conversationIndex(snap, in.ConversationID)
	if conv >= 0 {
		if last := snap.Conversations[conv].LastMessageAt; last != nil && !now.After(*last) {
			now = last.Add(time.Nanosecond)
		}
	}

	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	msg := models.Message{
		ID:             ids.New(),
		SenderID:       in.SenderID,
		ConversationID: in.ConversationID,
		Content:        in.Content,
		Metadata:       metadata,
		Read:           []models.ReadReceipt{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if len(in.Attachments) > 0 {
		msg.Attachments = bindAttachments(in.Attachments, msg.ID)
	}
	snap.Messages = append(snap.Messages, msg)

	if conv >= 0 {
		at := now
		snap.Conversations[conv].LastMessageAt = &at
	}
	return msg
}

func bindAttachments(in []models.Attachment, messageID string) []models.Attachment {
	out := make([]models.Attachment, len(in))
	for i, a := range in {
		if a.ID == "" {
			a.ID = ids.New()
		}
		a.MessageID = messageID
		out[i] = a
	}
	return out
}

// newestFirst filters msgs and sorts the matches by createdAt descending.
// Equal timestamps put the later-inserted message first.
func newestFirst(msgs []models.Message, keep func(models.Message) bool) []models.Message {
	out := []models.Message{}
	for i := len(msgs) - 1; i >= 0; i-- {
		if keep(msgs[i]) {
			out = append(out, msgs[i])
		}
	}
	slices.SortStableFunc(out, func(a, b models.Message) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

func messageIndex(snap *store.Snapshot, id string) int {
	return slices.IndexFunc(snap.Messages, func(m models.Message) bool { return m.ID == id })
}
