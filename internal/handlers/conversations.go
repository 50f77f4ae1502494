package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"messageapp/internal/models"
	"messageapp/internal/repositories"
	"messageapp/internal/telemetry"
	"messageapp/internal/ws"
)

// ConversationHandler serves conversation endpoints. Membership checks live
// here, not in the repository.
type ConversationHandler struct {
	convs repositories.ConversationRepository
	users repositories.UserRepository
	msgs  repositories.MessageRepository
	hub   *ws.Hub
	audit *telemetry.AuditEmitter
}

func NewConversationHandler(convs repositories.ConversationRepository, users repositories.UserRepository, msgs repositories.MessageRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{convs: convs, users: users, msgs: msgs, hub: hub, audit: audit}
}

// List handles GET /conversations: the caller's most recent conversations with
// the other participants' profiles and the newest message of each.
func (h *ConversationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	self := userIDFromContext(c)

	convs, err := h.convs.RecentForUser(ctx, self, repositories.DefaultRecentLimit)
	if err != nil {
		respondError(c, err, "Server failed to fetch conversations")
		return
	}

	var peerIDs, convIDs []string
	for _, conv := range convs {
		convIDs = append(convIDs, conv.ID)
		for _, id := range conv.ParticipantIDs {
			if id != self && !slices.Contains(peerIDs, id) {
				peerIDs = append(peerIDs, id)
			}
		}
	}

	peers, err := h.users.FindByIDs(ctx, peerIDs)
	if err != nil {
		respondError(c, err, "Server failed to fetch conversations")
		return
	}
	byID := make(map[string]models.PublicUser, len(peers))
	for _, u := range peers {
		byID[u.ID] = u
	}

	latest, err := h.msgs.LatestByConversations(ctx, convIDs, 1)
	if err != nil {
		respondError(c, err, "Server failed to fetch conversations")
		return
	}

	resp := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := models.ConversationSummary{Conversation: conv, OtherParticipants: []models.PublicUser{}}
		for _, id := range conv.ParticipantIDs {
			if u, ok := byID[id]; ok && id != self {
				summary.OtherParticipants = append(summary.OtherParticipants, u)
			}
		}
		if msgs := latest[conv.ID]; len(msgs) > 0 {
			summary.LastMessage = &msgs[0]
		}
		resp = append(resp, summary)
	}
	c.JSON(http.StatusOK, resp)
}

// CreateDirect handles POST /conversations/direct/:userId.
func (h *ConversationHandler) CreateDirect(c *gin.Context) {
	self := userIDFromContext(c)
	otherID := c.Param("userId")
	if otherID == self {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot create a conversation with yourself"})
		return
	}
	if _, err := h.users.FindByID(c.Request.Context(), otherID); err != nil {
		respondError(c, err, "Server failed to create direct conversation")
		return
	}

	conv, err := h.convs.CreateDirect(c.Request.Context(), []string{self, otherID})
	if err != nil {
		respondError(c, err, "Server failed to create direct conversation")
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// CreateGroup handles POST /conversations/group. The caller always joins.
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name    string   `json:"name" binding:"required"`
		UserIDs []string `json:"userIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversation name is required"})
		return
	}
	if len(req.UserIDs) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You must add at least 2 users"})
		return
	}

	participants := append(slices.Clone(req.UserIDs), userIDFromContext(c))
	conv, err := h.convs.CreateGroup(c.Request.Context(), participants, req.Name)
	if err != nil {
		respondError(c, err, "Server failed to create group conversation")
		return
	}

	emitAudit(h.audit, c, telemetry.LevelInfo, "conversation.group_create", "group created")
	c.JSON(http.StatusCreated, conv)
}

// Get handles GET /conversations/:id.
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, ok := h.loadForMember(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Rename handles PUT /conversations/:id. Only groups can be renamed.
func (h *ConversationHandler) Rename(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversation name is required"})
		return
	}

	conv, ok := h.loadForMember(c)
	if !ok {
		return
	}
	if !conv.IsGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Direct conversations cannot be modified"})
		return
	}

	updated, err := h.convs.Rename(c.Request.Context(), conv.ID, req.Name)
	if err != nil {
		respondError(c, err, "Server failed to update conversation")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /conversations/:id. Every message goes with it.
func (h *ConversationHandler) Delete(c *gin.Context) {
	conv, ok := h.loadForMember(c)
	if !ok {
		return
	}
	if err := h.convs.Delete(c.Request.Context(), conv.ID); err != nil {
		respondError(c, err, "Server failed to delete conversation")
		return
	}
	h.hub.CloseRoom(conv.ID)

	emitAudit(h.audit, c, telemetry.LevelInfo, "conversation.delete", "conversation deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Conversation successfully deleted"})
}

// AddParticipants handles POST /conversations/:id/participants.
func (h *ConversationHandler) AddParticipants(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"userIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.UserIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You must provide a list of users to add"})
		return
	}

	conv, ok := h.loadForMember(c)
	if !ok {
		return
	}
	if !conv.IsGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot add users to a direct conversation"})
		return
	}

	updated, err := h.convs.AddParticipants(c.Request.Context(), conv.ID, req.UserIDs)
	if err != nil {
		respondError(c, err, "Server failed to add users to conversation")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// RemoveParticipant handles DELETE /conversations/:id/participants/:userId.
// Members may remove themselves or anyone else.
func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	conv, ok := h.loadForMember(c)
	if !ok {
		return
	}
	if !conv.IsGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot remove users from a direct conversation"})
		return
	}

	removedID := c.Param("userId")
	updated, err := h.convs.RemoveParticipant(c.Request.Context(), conv.ID, removedID)
	if err != nil {
		respondError(c, err, "Server failed to remove user from conversation")
		return
	}
	h.hub.RemoveUser(conv.ID, removedID)
	c.JSON(http.StatusOK, updated)
}

// loadForMember fetches :id and writes 404/403 itself when the caller may not see it.
func (h *ConversationHandler) loadForMember(c *gin.Context) (models.Conversation, bool) {
	conv, err := h.convs.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Server failed to fetch conversation")
		return models.Conversation{}, false
	}
	if !conv.HasParticipant(userIDFromContext(c)) {
		emitAudit(h.audit, c, telemetry.LevelWarn, "conversation.access", "non-participant access denied")
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this conversation"})
		return models.Conversation{}, false
	}
	return conv, true
}
