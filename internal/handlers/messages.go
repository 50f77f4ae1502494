package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"messageapp/internal/models"
	"messageapp/internal/repositories"
	"messageapp/internal/telemetry"
	"messageapp/internal/updates"
	"messageapp/internal/ws"
)

// MessageHandler serves message endpoints and fans changes out to websocket subscribers.
type MessageHandler struct {
	msgs    repositories.MessageRepository
	convs   repositories.ConversationRepository
	tracker updates.Tracker
	hub     *ws.Hub
	audit   *telemetry.AuditEmitter
}

func NewMessageHandler(msgs repositories.MessageRepository, convs repositories.ConversationRepository, tracker updates.Tracker, hub *ws.Hub, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{msgs: msgs, convs: convs, tracker: tracker, hub: hub, audit: audit}
}

// List handles GET /messages/conversations/:id/messages?limit=&before=.
// before is an RFC 3339 timestamp; pass the oldest createdAt seen to page back.
func (h *MessageHandler) List(c *gin.Context) {
	conversationID := c.Param("id")

	limit := repositories.DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC 3339 timestamp"})
			return
		}
		before = &parsed
	}

	if !h.requireParticipant(c, conversationID) {
		return
	}

	msgs, err := h.msgs.FindByConversationID(c.Request.Context(), conversationID, limit, before)
	if err != nil {
		respondError(c, err, "Server failed to fetch messages")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// Send handles POST /messages/conversations/:id/messages.
func (h *MessageHandler) Send(c *gin.Context) {
	var req struct {
		Content     string              `json:"content" binding:"required"`
		Metadata    map[string]any      `json:"metadata"`
		Attachments []models.Attachment `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content is required"})
		return
	}
	for _, a := range req.Attachments {
		if !a.Type.Valid() || a.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attachment"})
			return
		}
	}

	ctx := c.Request.Context()
	self := userIDFromContext(c)
	conv, err := h.convs.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "Server failed to send message")
		return
	}
	if !conv.HasParticipant(self) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this conversation"})
		return
	}

	msg, err := h.msgs.Create(ctx, models.NewMessage{
		SenderID:       self,
		ConversationID: conv.ID,
		Content:        req.Content,
		Attachments:    req.Attachments,
		Metadata:       req.Metadata,
	})
	if err != nil {
		respondError(c, err, "Server failed to send message")
		return
	}

	recipients := make([]string, 0, len(conv.ParticipantIDs))
	for _, id := range conv.ParticipantIDs {
		if id != self {
			recipients = append(recipients, id)
		}
	}
	markUpdates(ctx, h.tracker, recipients...)
	h.hub.BroadcastMessage(conv.ID, msg)
	c.JSON(http.StatusCreated, msg)
}

// MarkRead handles PUT /messages/:id/read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}
	if !h.requireParticipant(c, msg.ConversationID) {
		return
	}

	self := userIDFromContext(c)
	updated, err := h.msgs.MarkAsRead(c.Request.Context(), msg.ID, self)
	if err != nil {
		respondError(c, err, "Server failed to mark message as read")
		return
	}
	if !msg.ReadBy(self) {
		for _, r := range updated.Read {
			if r.UserID == self {
				h.hub.BroadcastRead(msg.ConversationID, msg.ID, r)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message marked as read"})
}

// MarkConversationRead handles PUT /messages/conversations/:id/read.
func (h *MessageHandler) MarkConversationRead(c *gin.Context) {
	conversationID := c.Param("id")
	if !h.requireParticipant(c, conversationID) {
		return
	}

	self := userIDFromContext(c)
	receipt, count, err := h.msgs.MarkAllAsRead(c.Request.Context(), conversationID, self)
	if err != nil {
		respondError(c, err, "Server failed to mark messages as read")
		return
	}
	if count > 0 {
		h.hub.BroadcastRead(conversationID, "", receipt)
	}
	c.JSON(http.StatusOK, gin.H{"message": strconv.Itoa(count) + " messages marked as read", "markedCount": count})
}

// Edit handles PUT /messages/:id. Only the sender may edit.
func (h *MessageHandler) Edit(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content is required"})
		return
	}

	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}
	if msg.SenderID != userIDFromContext(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to edit this message"})
		return
	}

	updated, err := h.msgs.Update(c.Request.Context(), msg.ID, models.MessageUpdate{Content: &req.Content})
	if err != nil {
		respondError(c, err, "Server failed to edit message")
		return
	}
	h.hub.BroadcastUpdate(updated.ConversationID, updated)
	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /messages/:id. Only the sender may delete.
func (h *MessageHandler) Delete(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}
	if msg.SenderID != userIDFromContext(c) {
		emitAudit(h.audit, c, telemetry.LevelWarn, "message.delete", "non-sender delete denied")
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to delete this message"})
		return
	}

	if err := h.msgs.Delete(c.Request.Context(), msg.ID); err != nil {
		respondError(c, err, "Server failed to delete message")
		return
	}
	h.hub.BroadcastDeletion(msg.ConversationID, msg.ID)
	emitAudit(h.audit, c, telemetry.LevelInfo, "message.delete", "message deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Message successfully deleted"})
}

// Unread handles GET /messages/unread: conversation id to unread count,
// listing only conversations with something unread.
func (h *MessageHandler) Unread(c *gin.Context) {
	ctx := c.Request.Context()
	self := userIDFromContext(c)

	convs, err := h.convs.FindByUserID(ctx, self)
	if err != nil {
		respondError(c, err, "Server failed to get unread message counts")
		return
	}
	counts := make(map[string]int)
	for _, conv := range convs {
		n, err := h.msgs.UnreadCount(ctx, conv.ID, self)
		if err != nil {
			respondError(c, err, "Server failed to get unread message counts")
			return
		}
		if n > 0 {
			counts[conv.ID] = n
		}
	}
	c.JSON(http.StatusOK, counts)
}

// Search handles GET /messages/search?term=&conversationId=. Results never
// include conversations the caller is not part of.
func (h *MessageHandler) Search(c *gin.Context) {
	term := c.Query("term")
	if len(term) < minSearchLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search term must be at least 2 characters"})
		return
	}

	ctx := c.Request.Context()
	conversationID := c.Query("conversationId")
	if conversationID != "" && !h.requireParticipant(c, conversationID) {
		return
	}

	msgs, err := h.msgs.Search(ctx, term, conversationID)
	if err != nil {
		respondError(c, err, "Server failed to search messages")
		return
	}
	if conversationID != "" {
		c.JSON(http.StatusOK, msgs)
		return
	}

	convs, err := h.convs.FindByUserID(ctx, userIDFromContext(c))
	if err != nil {
		respondError(c, err, "Server failed to search messages")
		return
	}
	mine := make(map[string]struct{}, len(convs))
	for _, conv := range convs {
		mine[conv.ID] = struct{}{}
	}
	visible := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := mine[m.ConversationID]; ok {
			visible = append(visible, m)
		}
	}
	c.JSON(http.StatusOK, visible)
}

func (h *MessageHandler) loadMessage(c *gin.Context) (models.Message, bool) {
	msg, err := h.msgs.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Server failed to fetch message")
		return models.Message{}, false
	}
	return msg, true
}

// requireParticipant writes 403 and reports false unless the caller belongs to conversationID.
func (h *MessageHandler) requireParticipant(c *gin.Context, conversationID string) bool {
	member, err := h.convs.IsParticipant(c.Request.Context(), conversationID, userIDFromContext(c))
	if err != nil {
		respondError(c, err, "membership check failed")
		return false
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this conversation"})
		return false
	}
	return true
}
