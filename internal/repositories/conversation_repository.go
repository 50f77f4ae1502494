package repositories

import (
	"context"
	"slices"
	"time"

	"messageapp/internal/ids"
	"messageapp/internal/models"
	"messageapp/internal/store"
)

// DefaultRecentLimit caps RecentForUser when the caller passes no limit.
const DefaultRecentLimit = 20

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	Create(ctx context.Context, conv models.Conversation) (models.Conversation, error)
	CreateDirect(ctx context.Context, userIDs []string) (models.Conversation, error)
	CreateGroup(ctx context.Context, userIDs []string, name string) (models.Conversation, error)
	FindByID(ctx context.Context, id string) (models.Conversation, error)
	FindByUserID(ctx context.Context, userID string) ([]models.Conversation, error)
	FindDirectBetween(ctx context.Context, userA, userB string) (models.Conversation, error)
	Rename(ctx context.Context, id, name string) (models.Conversation, error)
	AddParticipants(ctx context.Context, id string, userIDs []string) (models.Conversation, error)
	RemoveParticipant(ctx context.Context, id, userID string) (models.Conversation, error)
	Delete(ctx context.Context, id string) error
	IsParticipant(ctx context.Context, id, userID string) (bool, error)
	RecentForUser(ctx context.Context, userID string, limit int) ([]models.Conversation, error)
}

// ConversationRepo is a snapshot-backed ConversationRepository.
type ConversationRepo struct {
	store *store.Store
	now   func() time.Time
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(s *store.Store) *ConversationRepo {
	return &ConversationRepo{store: s, now: time.Now}
}

// Create stores conv with a fresh id and timestamps. Participant ids are deduplicated.
func (r *ConversationRepo) Create(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		conv = insertConversation(snap, conv.ParticipantIDs, conv.IsGroup, conv.Name, r.now())
		return nil
	})
	return conv, err
}

// CreateDirect returns the direct conversation between exactly two distinct
// users, creating it if it does not exist yet.
func (r *ConversationRepo) CreateDirect(ctx context.Context, userIDs []string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		before := len(snap.Conversations)
		var err error
		conv, err = createDirect(snap, userIDs, r.now())
		if err != nil {
			return err
		}
		if len(snap.Conversations) == before {
			return store.ErrNoChange
		}
		return nil
	})
	return conv, err
}

// CreateGroup always creates a new named group. Duplicate ids are dropped
// before the two-member minimum is checked.
func (r *ConversationRepo) CreateGroup(ctx context.Context, userIDs []string, name string) (models.Conversation, error) {
	if len(dedupe(userIDs)) < 2 {
		return models.Conversation{}, ErrGroupNeedsTwo
	}
	var conv models.Conversation
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		conv = insertConversation(snap, userIDs, true, name, r.now())
		return nil
	})
	return conv, err
}

func (r *ConversationRepo) FindByID(ctx context.Context, id string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		i := conversationIndex(snap, id)
		if i < 0 {
			return ErrConversationNotFound
		}
		conv = snap.Conversations[i]
		return nil
	})
	return conv, err
}

// FindByUserID lists the conversations userID belongs to, in store order.
func (r *ConversationRepo) FindByUserID(ctx context.Context, userID string) ([]models.Conversation, error) {
	convs := []models.Conversation{}
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		for _, c := range snap.Conversations {
			if c.HasParticipant(userID) {
				convs = append(convs, c)
			}
		}
		return nil
	})
	return convs, err
}

func (r *ConversationRepo) FindDirectBetween(ctx context.Context, userA, userB string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		i := directIndex(snap, userA, userB)
		if i < 0 {
			return ErrConversationNotFound
		}
		conv = snap.Conversations[i]
		return nil
	})
	return conv, err
}

// Rename sets the conversation name. Refusing to rename direct conversations
// is left to the caller.
func (r *ConversationRepo) Rename(ctx context.Context, id, name string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := conversationIndex(snap, id)
		if i < 0 {
			return ErrConversationNotFound
		}
		snap.Conversations[i].Name = name
		snap.Conversations[i].UpdatedAt = r.now()
		conv = snap.Conversations[i]
		return nil
	})
	return conv, err
}

// AddParticipants appends the ids not already present. Nothing is written when
// every id is already a member.
func (r *ConversationRepo) AddParticipants(ctx context.Context, id string, userIDs []string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := conversationIndex(snap, id)
		if i < 0 {
			return ErrConversationNotFound
		}
		c := &snap.Conversations[i]
		if !c.IsGroup {
			return ErrDirectImmutable
		}
		added := 0
		for _, uid := range userIDs {
			if !slices.Contains(c.ParticipantIDs, uid) {
				c.ParticipantIDs = append(c.ParticipantIDs, uid)
				added++
			}
		}
		if added == 0 {
			conv = *c
			return store.ErrNoChange
		}
		c.UpdatedAt = r.now()
		conv = *c
		return nil
	})
	return conv, err
}

// RemoveParticipant drops userID from a group. Removing a non-member is a no-op.
func (r *ConversationRepo) RemoveParticipant(ctx context.Context, id, userID string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := conversationIndex(snap, id)
		if i < 0 {
			return ErrConversationNotFound
		}
		c := &snap.Conversations[i]
		if !c.IsGroup {
			return ErrDirectImmutable
		}
		participants, found := removeID(c.ParticipantIDs, userID)
		if !found {
			conv = *c
			return store.ErrNoChange
		}
		c.ParticipantIDs = participants
		c.UpdatedAt = r.now()
		conv = *c
		return nil
	})
	return conv, err
}

// Delete removes the conversation and every message in it.
func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	return r.store.Update(ctx, func(snap *store.Snapshot) error {
		i := conversationIndex(snap, id)
		if i < 0 {
			return ErrConversationNotFound
		}
		snap.Conversations = slices.Delete(snap.Conversations, i, i+1)
		snap.Messages = slices.DeleteFunc(snap.Messages, func(m models.Message) bool {
			return m.ConversationID == id
		})
		return nil
	})
}

// IsParticipant reports false, not an error, for an unknown conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, id, userID string) (bool, error) {
	var member bool
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		if i := conversationIndex(snap, id); i >= 0 {
			member = snap.Conversations[i].HasParticipant(userID)
		}
		return nil
	})
	return member, err
}

// RecentForUser returns userID's conversations, most recently active first.
// Conversations with equal activity keep their store order.
func (r *ConversationRepo) RecentForUser(ctx context.Context, userID string, limit int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	convs, err := r.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(convs, func(a, b models.Conversation) int {
		return b.ActivityAt().Compare(a.ActivityAt())
	})
	if len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

// createDirect returns the existing direct conversation for the pair or appends a new one.
func createDirect(snap *store.Snapshot, userIDs []string, now time.Time) (models.Conversation, error) {
	if len(userIDs) != 2 || userIDs[0] == userIDs[1] {
		return models.Conversation{}, ErrDirectNeedsTwo
	}
	if i := directIndex(snap, userIDs[0], userIDs[1]); i >= 0 {
		return snap.Conversations[i], nil
	}
	return insertConversation(snap, userIDs, false, "", now), nil
}

func insertConversation(snap *store.Snapshot, userIDs []string, isGroup bool, name string, now time.Time) models.Conversation {
	if !isGroup {
		name = ""
	}
	conv := models.Conversation{
		ID:             ids.New(),
		Name:           name,
		ParticipantIDs: dedupe(userIDs),
		IsGroup:        isGroup,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	snap.Conversations = append(snap.Conversations, conv)
	return conv
}

func conversationIndex(snap *store.Snapshot, id string) int {
	return slices.IndexFunc(snap.Conversations, func(c models.Conversation) bool { return c.ID == id })
}

func directIndex(snap *store.Snapshot, userA, userB string) int {
	return slices.IndexFunc(snap.Conversations, func(c models.Conversation) bool {
		return !c.IsGroup && len(c.ParticipantIDs) == 2 && c.HasParticipant(userA) && c.HasParticipant(userB)
	})
}

// dedupe keeps the first occurrence of each id.
func dedupe(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
