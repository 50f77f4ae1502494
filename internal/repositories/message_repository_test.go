package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messageapp/internal/models"
)

func TestCreateMessageDefaultsAndLastMessageAt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conv, err := env.convs.CreateDirect(ctx, []string{"a", "b"})
	require.NoError(t, err)

	saves := env.backend.Saves()
	msg, err := env.msgs.Create(ctx, models.NewMessage{
		SenderID:       "a",
		ConversationID: conv.ID,
		Content:        "hello",
		Attachments:    []models.Attachment{{Type: models.AttachmentImage, URL: "https://cdn/x.png", Name: "x.png", Size: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, saves+1, env.backend.Saves())
	assert.NotNil(t, msg.Metadata)
	assert.Empty(t, msg.Metadata)
	assert.NotNil(t, msg.Read)
	assert.Empty(t, msg.Read)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, msg.ID, msg.Attachments[0].MessageID)
	assert.NotEmpty(t, msg.Attachments[0].ID)

	updated, err := env.convs.FindByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastMessageAt)
	assert.Equal(t, msg.CreatedAt, *updated.LastMessageAt)
}

func TestCreateMessageIgnoresMissingConversation(t *testing.T) {
	env := newTestEnv(t)
	msg, err := env.msgs.Create(context.Background(), models.NewMessage{SenderID: "a", ConversationID: "ghost", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ghost", msg.ConversationID)
}

func TestPaginationReturnsNewestPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conv, err := env.convs.CreateDirect(ctx, []string{"a", "b"})
	require.NoError(t, err)

	// The clock never moves, so ordering relies on per-conversation monotonic stamps.
	var sent []models.Message
	for i := 0; i < 60; i++ {
		msg, err := env.msgs.Create(ctx, models.NewMessage{SenderID: "a", ConversationID: conv.ID, Content: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
		sent = append(sent, msg)
	}

	page, err := env.msgs.FindByConversationID(ctx, conv.ID, 50, nil)
	require.NoError(t, err)
	require.Len(t, page, 50)
	assert.Equal(t, "m59", page[0].Content)
	assert.Equal(t, "m10", page[49].Content)
	for i := 1; i < len(page); i++ {
		assert.True(t, page[i-1].CreatedAt.After(page[i].CreatedAt))
	}

	before := page[49].CreatedAt
	rest, err := env.msgs.FindByConversationID(ctx, conv.ID, 50, &before)
	require.NoError(t, err)
	require.Len(t, rest, 10)
	for _, m := range rest {
		assert.True(t, m.CreatedAt.Before(before))
	}
	assert.Equal(t, "m9", rest[0].Content)
	assert.Equal(t, sent[0].ID, rest[9].ID)
}

func TestLatestByConversations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c1, err := env.convs.CreateDirect(ctx, []string{"a", "b"})
	require.NoError(t, err)
	c2, err := env.convs.CreateDirect(ctx, []string{"a", "c"})
	require.NoError(t, err)
	empty, err := env.convs.CreateDirect(ctx, []string{"a", "d"})
	require.NoError(t, err)

	for _, content := range []string{"one", "two"} {
		_, err := env.msgs.Create(ctx, models.NewMessage{SenderID: "a", ConversationID: c1.ID, Content: content})
		require.NoError(t, err)
	}
	_, err = env.msgs.Create(ctx, models.NewMessage{SenderID: "c", ConversationID: c2.ID, Content: "three"})
	require.NoError(t, err)

	latest, err := env.msgs.LatestByConversations(ctx, []string{c1.ID, c2.ID, empty.ID}, 1)
	require.NoError(t, err)
	require.Len(t, latest[c1.ID], 1)
	assert.Equal(t, "two", latest[c1.ID][0].Content)
	assert.Equal(t, "three", latest[c2.ID][0].Content)
	assert.NotContains(t, latest, empty.ID)
}

func TestMarkAsReadIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	msg, err := env.msgs.Create(ctx, models.NewMessage{SenderID: "a", ConversationID: "c", Content: "x"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		env.clock.Advance(time.Second)
		msg, err = env.msgs.MarkAsRead(ctx, msg.ID, "b")
		require.NoError(t, err)
	}
	require.Len(t, msg.Read, 1)
	assert.Equal(t, "b", msg.Read[0].UserID)

	_, err = env.msgs.MarkAsRead(ctx, "ghost", "b")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMarkAllAsReadAndUnreadCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	var first models.Message
	for i := 0; i < 4; i++ {
		msg, err := env.msgs.Create(ctx, models.NewMessage{SenderID: "a", ConversationID: "c", Content: "x"})
		require.NoError(t, err)
		if i == 0 {
			first = msg
		}
	}
	_, err := env.msgs.MarkAsRead(ctx, first.ID, "b")
	require.NoError(t, err)

	unread, err := env.msgs.UnreadCount(ctx, "c", "b")
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	receipt, n, err := env.msgs.MarkAllAsRead(ctx, "c", "b")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "b", receipt.UserID)
	assert.True(t, env.clock.Now().Equal(receipt.At))

	msgs, err := env.msgs.FindByConversationID(ctx, "c", 0, nil)
	require.NoError(t, err)
	for _, m := range msgs {
		for _, r := range m.Read {
			if r.UserID == "b" && m.ID != first.ID {
				assert.True(t, receipt.At.Equal(r.At), "returned receipt matches the stored one")
			}
		}
	}

	saves := env.backend.Saves()
	receipt, n, err = env.msgs.MarkAllAsRead(ctx, "c", "b")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, receipt.At.IsZero())
	assert.Equal(t, saves, env.backend.Saves())

	unread, err = env.msgs.UnreadCount(ctx, "c", "b")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestUpdateAndDeleteMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	msg, err := env.msgs.Create(ctx, models.NewMessage{SenderID: "a", ConversationID: "c", Content: "draft"})
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	content := "final"
	edited, err := env.msgs.Update(ctx, msg.ID, models.MessageUpdate{Content: &content, Metadata: map[string]any{"edited": true}})
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Content)
	assert.Equal(t, true, edited.Metadata["edited"])
	assert.Equal(t, msg.CreatedAt, edited.CreatedAt)
	assert.Equal(t, msg.SenderID, edited.SenderID)
	assert.True(t, edited.UpdatedAt.After(msg.UpdatedAt))

	require.NoError(t, env.msgs.Delete(ctx, msg.ID))
	_, err = env.msgs.FindByID(ctx, msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
	assert.ErrorIs(t, env.msgs.Delete(ctx, msg.ID), ErrMessageNotFound)
}

func TestSearchMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, in := range []models.NewMessage{
		{SenderID: "a", ConversationID: "c1", Content: "Lunch tomorrow?"},
		{SenderID: "b", ConversationID: "c1", Content: "no"},
		{SenderID: "a", ConversationID: "c2", Content: "LUNCH is ready"},
	} {
		env.clock.Advance(time.Second)
		_, err := env.msgs.Create(ctx, in)
		require.NoError(t, err)
	}

	found, err := env.msgs.Search(ctx, "lunch", "")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "c2", found[0].ConversationID)

	found, err = env.msgs.Search(ctx, "lunch", "c1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Lunch tomorrow?", found[0].Content)
}
