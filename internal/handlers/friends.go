package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"messageapp/internal/repositories"
	"messageapp/internal/telemetry"
	"messageapp/internal/updates"
)

// FriendHandler serves the friend graph endpoints.
type FriendHandler struct {
	friends repositories.FriendRepository
	tracker updates.Tracker
	audit   *telemetry.AuditEmitter
}

func NewFriendHandler(friends repositories.FriendRepository, tracker updates.Tracker, audit *telemetry.AuditEmitter) *FriendHandler {
	return &FriendHandler{friends: friends, tracker: tracker, audit: audit}
}

// List handles GET /friends.
func (h *FriendHandler) List(c *gin.Context) {
	friends, err := h.friends.Friends(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		respondError(c, err, "Server failed to fetch friends")
		return
	}
	c.JSON(http.StatusOK, friends)
}

// Requests handles GET /friends/requests.
func (h *FriendHandler) Requests(c *gin.Context) {
	requests, err := h.friends.FriendRequests(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		respondError(c, err, "Server failed to fetch friend requests")
		return
	}
	c.JSON(http.StatusOK, requests)
}

// SendRequest handles POST /friends/requests/:userId.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	recipientID := c.Param("userId")
	if err := h.friends.SendFriendRequest(c.Request.Context(), userIDFromContext(c), recipientID); err != nil {
		respondError(c, err, "Server failed to send friend request")
		return
	}

	markUpdates(c.Request.Context(), h.tracker, recipientID)
	emitAudit(h.audit, c, telemetry.LevelInfo, "friend.request", "friend request sent")
	c.JSON(http.StatusOK, gin.H{"message": "Friend request sent successfully"})
}

// Accept handles PUT /friends/requests/:userId/accept. The response carries the
// direct conversation opened for the new friends.
func (h *FriendHandler) Accept(c *gin.Context) {
	requesterID := c.Param("userId")
	conv, err := h.friends.AcceptFriendRequest(c.Request.Context(), userIDFromContext(c), requesterID)
	if err != nil {
		respondError(c, err, "Server failed to accept friend request")
		return
	}

	markUpdates(c.Request.Context(), h.tracker, requesterID)
	emitAudit(h.audit, c, telemetry.LevelInfo, "friend.accept", "friend request accepted")
	c.JSON(http.StatusOK, gin.H{"message": "Friend request accepted successfully", "conversation": conv})
}

// Decline handles PUT /friends/requests/:userId/decline.
func (h *FriendHandler) Decline(c *gin.Context) {
	if err := h.friends.DeclineFriendRequest(c.Request.Context(), userIDFromContext(c), c.Param("userId")); err != nil {
		respondError(c, err, "Server failed to decline friend request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Friend request declined"})
}

// Remove handles DELETE /friends/:userId.
func (h *FriendHandler) Remove(c *gin.Context) {
	if err := h.friends.RemoveFriend(c.Request.Context(), userIDFromContext(c), c.Param("userId")); err != nil {
		respondError(c, err, "Server failed to remove friend")
		return
	}
	emitAudit(h.audit, c, telemetry.LevelInfo, "friend.remove", "friend removed")
	c.JSON(http.StatusOK, gin.H{"message": "Friend removed successfully"})
}

// markUpdates flags users for the update poll. Failures only cost a missed
// poll hint, so they are logged and swallowed.
func markUpdates(ctx context.Context, tracker updates.Tracker, userIDs ...string) {
	if tracker == nil || len(userIDs) == 0 {
		return
	}
	if err := tracker.Mark(ctx, userIDs...); err != nil {
		log.Printf("update tracker mark failed: %v", err)
	}
}
