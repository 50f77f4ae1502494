package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messageapp/internal/models"
	"messageapp/internal/repositories"
	"messageapp/internal/updates"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Register(ctx context.Context, reg models.Registration) (models.PublicUser, models.AccessToken, error) {
	args := m.Called(ctx, reg)
	return args.Get(0).(models.PublicUser), args.Get(1).(models.AccessToken), args.Error(2)
}

func (m *UserRepositoryMock) Authenticate(ctx context.Context, email, password string) (models.PublicUser, models.AccessToken, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(models.PublicUser), args.Get(1).(models.AccessToken), args.Error(2)
}

func (m *UserRepositoryMock) VerifyPassword(ctx context.Context, id, password string) error {
	args := m.Called(ctx, id, password)
	return args.Error(0)
}

func (m *UserRepositoryMock) FindByID(ctx context.Context, id string) (models.PublicUser, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.PublicUser), args.Error(1)
}

func (m *UserRepositoryMock) FindByIDs(ctx context.Context, ids []string) ([]models.PublicUser, error) {
	args := m.Called(ctx, ids)
	var users []models.PublicUser
	if val := args.Get(0); val != nil {
		users = val.([]models.PublicUser)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) FindByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepositoryMock) FindAll(ctx context.Context) ([]models.PublicUser, error) {
	args := m.Called(ctx)
	var users []models.PublicUser
	if val := args.Get(0); val != nil {
		users = val.([]models.PublicUser)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) Search(ctx context.Context, term string) ([]models.PublicUser, error) {
	args := m.Called(ctx, term)
	var users []models.PublicUser
	if val := args.Get(0); val != nil {
		users = val.([]models.PublicUser)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) Update(ctx context.Context, id string, update models.ProfileUpdate) (models.PublicUser, error) {
	args := m.Called(ctx, id, update)
	return args.Get(0).(models.PublicUser), args.Error(1)
}

func (m *UserRepositoryMock) UpdatePassword(ctx context.Context, id, newPassword string) error {
	args := m.Called(ctx, id, newPassword)
	return args.Error(0)
}

func (m *UserRepositoryMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type FriendRepositoryMock struct {
	mock.Mock
}

func (m *FriendRepositoryMock) SendFriendRequest(ctx context.Context, requesterID, recipientID string) error {
	args := m.Called(ctx, requesterID, recipientID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) AcceptFriendRequest(ctx context.Context, userID, requesterID string) (models.Conversation, error) {
	args := m.Called(ctx, userID, requesterID)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *FriendRepositoryMock) DeclineFriendRequest(ctx context.Context, userID, requesterID string) error {
	args := m.Called(ctx, userID, requesterID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) RemoveFriend(ctx context.Context, userID, friendID string) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) Friends(ctx context.Context, userID string) ([]models.PublicUser, error) {
	args := m.Called(ctx, userID)
	var users []models.PublicUser
	if val := args.Get(0); val != nil {
		users = val.([]models.PublicUser)
	}
	return users, args.Error(1)
}

func (m *FriendRepositoryMock) FriendRequests(ctx context.Context, userID string) ([]models.PublicUser, error) {
	args := m.Called(ctx, userID)
	var users []models.PublicUser
	if val := args.Get(0); val != nil {
		users = val.([]models.PublicUser)
	}
	return users, args.Error(1)
}

type TokenRepositoryMock struct {
	mock.Mock
}

func (m *TokenRepositoryMock) Issue(ctx context.Context, userID string, ttl time.Duration) (models.AccessToken, error) {
	args := m.Called(ctx, userID, ttl)
	return args.Get(0).(models.AccessToken), args.Error(1)
}

func (m *TokenRepositoryMock) Verify(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *TokenRepositoryMock) Revoke(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *TokenRepositoryMock) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *TokenRepositoryMock) SweepExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) Create(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	args := m.Called(ctx, conv)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ConversationRepositoryMock) CreateDirect(ctx context.Context, userIDs []string) (models.Conversation, error) {
	args := m.Called(ctx, userIDs)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ConversationRepositoryMock) CreateGroup(ctx context.Context, userIDs []string, name string) (models.Conversation, error) {
	args := m.Called(ctx, userIDs, name)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ConversationRepositoryMock) FindByID(ctx context.Context, id string) (models.Conversation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ConversationRepositoryMock) FindByUserID(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

func (m *ConversationRepositoryMock) FindDirectBetween(ctx context.Context, userA, userB string) (models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ConversationRepositoryMock) Rename(ctx context.Context, id, name string) (models.Conversation, error) {
	args := m.Called(ctx, id, name)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ConversationRepositoryMock) AddParticipants(ctx context.Context, id string, userIDs []string) (models.Conversation, error) {
	args := m.Called(ctx, id, userIDs)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ConversationRepositoryMock) RemoveParticipant(ctx context.Context, id, userID string) (models.Conversation, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ConversationRepositoryMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, id, userID string) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) RecentForUser(ctx context.Context, userID string, limit int) ([]models.Conversation, error) {
	args := m.Called(ctx, userID, limit)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, in models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) FindByID(ctx context.Context, id string) (models.Message, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) FindByConversationID(ctx context.Context, conversationID string, limit int, before *time.Time) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, limit, before)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) LatestByConversations(ctx context.Context, conversationIDs []string, limit int) (map[string][]models.Message, error) {
	args := m.Called(ctx, conversationIDs, limit)
	var latest map[string][]models.Message
	if val := args.Get(0); val != nil {
		latest = val.(map[string][]models.Message)
	}
	return latest, args.Error(1)
}

func (m *MessageRepositoryMock) Update(ctx context.Context, id string, update models.MessageUpdate) (models.Message, error) {
	args := m.Called(ctx, id, update)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkAsRead(ctx context.Context, id, userID string) (models.Message, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) MarkAllAsRead(ctx context.Context, conversationID, userID string) (models.ReadReceipt, int, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Get(0).(models.ReadReceipt), args.Int(1), args.Error(2)
}

func (m *MessageRepositoryMock) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) Search(ctx context.Context, term, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, term, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type TrackerMock struct {
	mock.Mock
}

func (m *TrackerMock) Mark(ctx context.Context, userIDs ...string) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

func (m *TrackerMock) Consume(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

var (
	_ repositories.UserRepository         = (*UserRepositoryMock)(nil)
	_ repositories.FriendRepository       = (*FriendRepositoryMock)(nil)
	_ repositories.TokenRepository        = (*TokenRepositoryMock)(nil)
	_ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
	_ repositories.MessageRepository      = (*MessageRepositoryMock)(nil)
	_ updates.Tracker                     = (*TrackerMock)(nil)
)
