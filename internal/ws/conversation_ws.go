package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messageapp/internal/middleware"
	"messageapp/internal/observability"
)

// Subscribers only receive; anything they send is read and discarded.
const maxInboundMessage = 4096

type ParticipantChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

// ConversationHandler upgrades subscribers of a conversation.
type ConversationHandler struct {
	hub    *Hub
	tokens middleware.TokenVerifier
	convs  ParticipantChecker
}

func NewConversationHandler(hub *Hub, tokens middleware.TokenVerifier, convs ParticipantChecker) *ConversationHandler {
	return &ConversationHandler{hub: hub, tokens: tokens, convs: convs}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the caller, checks membership and joins the room of :id.
// Browsers cannot set headers on websocket requests, so a token query
// parameter is accepted as well.
func (h *ConversationHandler) Handle(c *gin.Context) {
	conversationID := c.Param("id")

	ctx, span := otel.Tracer("messageapp/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := middleware.TokenFromRequest(c.Request)
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	userID, err := h.tokens.Verify(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	member, err := h.convs.IsParticipant(ctx, conversationID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this conversation"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(maxInboundMessage)

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     observability.TraceIDFromContext(ctx),
		ConnectedAt: time.Now(),
		token:       token,
	}
	h.hub.AddClient(conversationID, conn, info)
	observability.IncWSActive()
	publishLifecycle(ctx, "ws_connect", conversationID, info, "")

	// The request context ends with the handler; lifecycle events outlive it.
	go h.readLoop(context.WithoutCancel(ctx), conversationID, conn, info)
}

func (h *ConversationHandler) readLoop(ctx context.Context, conversationID string, conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.RemoveClient(conversationID, conn)
		observability.DecWSActive()
		publishLifecycle(ctx, "ws_disconnect", conversationID, info, closeReason)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishLifecycle(ctx, "ws_error", conversationID, info, closeReason)
			}
			return
		}
	}
}
