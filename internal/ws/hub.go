package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messageapp/internal/middleware"
	"messageapp/internal/models"
	"messageapp/internal/observability"
)

// RoutingKey is where connection lifecycle events are published.
const RoutingKey = "ws_events.conversations"

// Event types pushed to subscribers.
const (
	EventMessage        = "message"
	EventMessageUpdated = "message_updated"
	EventMessageDeleted = "message_deleted"
	EventRead           = "read"
)

const writeWait = 10 * time.Second

type client struct {
	conn *websocket.Conn
	info ConnInfo
	// gorilla connections allow one concurrent writer.
	writeMu sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub maintains one room per conversation. A nil Hub accepts every call and
// does nothing.
type Hub struct {
	rooms  map[string]map[*websocket.Conn]*client
	mu     sync.RWMutex
	tokens middleware.TokenVerifier
	convs  ParticipantChecker
}

// NewHub creates an empty hub. Before every delivery the subscriber's token is
// verified with tokens and its membership with convs; a subscriber failing
// either check is disconnected instead. Nil checkers skip that check.
func NewHub(tokens middleware.TokenVerifier, convs ParticipantChecker) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*websocket.Conn]*client),
		tokens: tokens,
		convs:  convs,
	}
}

// AddClient registers conn in the room of conversationID.
func (h *Hub) AddClient(conversationID string, conn *websocket.Conn, info ConnInfo) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*websocket.Conn]*client)
		h.rooms[conversationID] = room
	}
	room[conn] = &client{conn: conn, info: info}
}

// RemoveClient drops conn from the room, deleting the room when it empties.
func (h *Hub) RemoveClient(conversationID string, conn *websocket.Conn) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[conversationID]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// RoomSize reports how many connections watch conversationID.
func (h *Hub) RoomSize(conversationID string) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// BroadcastMessage pushes a newly sent message.
func (h *Hub) BroadcastMessage(conversationID string, msg models.Message) {
	h.broadcast(conversationID, models.ConversationEvent{Type: EventMessage, Message: &msg})
}

// BroadcastUpdate pushes an edited message.
func (h *Hub) BroadcastUpdate(conversationID string, msg models.Message) {
	h.broadcast(conversationID, models.ConversationEvent{Type: EventMessageUpdated, Message: &msg})
}

// BroadcastDeletion tells subscribers a message is gone.
func (h *Hub) BroadcastDeletion(conversationID, messageID string) {
	h.broadcast(conversationID, models.ConversationEvent{Type: EventMessageDeleted, MessageID: messageID})
}

// BroadcastRead pushes a read receipt. An empty messageID means every message
// of the conversation was marked read.
func (h *Hub) BroadcastRead(conversationID, messageID string, receipt models.ReadReceipt) {
	h.broadcast(conversationID, models.ConversationEvent{Type: EventRead, MessageID: messageID, Receipt: &receipt})
}

func (h *Hub) broadcast(conversationID string, event models.ConversationEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[conversationID]))
	for _, cl := range h.rooms[conversationID] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket encode error: %v", err)
		return
	}
	ctx := context.Background()
	for _, cl := range clients {
		if reason := h.authorize(ctx, conversationID, cl.info); reason != "" {
			h.disconnect(conversationID, cl, reason)
			continue
		}
		if err := cl.write(payload); err != nil {
			log.Printf("websocket write error conversation_id=%s conn_id=%s: %v", conversationID, cl.info.ConnID, err)
			cl.conn.Close()
			h.RemoveClient(conversationID, cl.conn)
			publishLifecycle(context.Background(), "ws_error", conversationID, cl.info, err.Error())
		}
	}
	observability.IncWSEvent(event.Type)
}

// authorize returns why info may no longer receive events of conversationID,
// or "" when it may.
func (h *Hub) authorize(ctx context.Context, conversationID string, info ConnInfo) string {
	if h.tokens != nil {
		userID, err := h.tokens.Verify(ctx, info.token)
		if err != nil || userID != info.UserID {
			return "session ended"
		}
	}
	if h.convs != nil {
		member, err := h.convs.IsParticipant(ctx, conversationID, info.UserID)
		if err != nil || !member {
			return "not a participant"
		}
	}
	return ""
}

// RemoveUser disconnects every socket userID holds on conversationID.
func (h *Hub) RemoveUser(conversationID, userID string) int {
	return h.disconnectWhere("removed from conversation", func(roomID string, info ConnInfo) bool {
		return roomID == conversationID && info.UserID == userID
	})
}

// CloseRoom disconnects every subscriber of conversationID.
func (h *Hub) CloseRoom(conversationID string) int {
	return h.disconnectWhere("conversation deleted", func(roomID string, _ ConnInfo) bool {
		return roomID == conversationID
	})
}

// DisconnectToken drops every socket opened with token, in any room.
func (h *Hub) DisconnectToken(token string) int {
	return h.disconnectWhere("logged out", func(_ string, info ConnInfo) bool {
		return info.token == token
	})
}

// DisconnectUser drops every socket of userID, in any room.
func (h *Hub) DisconnectUser(userID string) int {
	return h.disconnectWhere("logged out", func(_ string, info ConnInfo) bool {
		return info.UserID == userID
	})
}

func (h *Hub) disconnectWhere(reason string, match func(conversationID string, info ConnInfo) bool) int {
	if h == nil {
		return 0
	}
	type target struct {
		conversationID string
		cl             *client
	}
	var targets []target
	h.mu.RLock()
	for conversationID, room := range h.rooms {
		for _, cl := range room {
			if match(conversationID, cl.info) {
				targets = append(targets, target{conversationID, cl})
			}
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		h.disconnect(t.conversationID, t.cl, reason)
	}
	return len(targets)
}

// disconnect sends a policy-violation close frame and drops cl from the room.
// The connection's read loop then fails and finishes its own cleanup.
func (h *Hub) disconnect(conversationID string, cl *client, reason string) {
	h.RemoveClient(conversationID, cl.conn)
	if cl.conn != nil {
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
		_ = cl.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
		cl.conn.Close()
	}
	log.Printf("websocket disconnected conversation_id=%s conn_id=%s user_id=%s reason=%q", conversationID, cl.info.ConnID, cl.info.UserID, reason)
	publishLifecycle(context.Background(), "ws_revoked", conversationID, cl.info, reason)
}

func publishLifecycle(ctx context.Context, name, conversationID string, info ConnInfo, reason string) {
	observability.IncWSEvent(name)
	_ = observability.PublishEvent(ctx, RoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		RequestID: info.RequestID,
		TraceID:   info.TraceID,
		Payload: map[string]any{
			"ws": map[string]any{
				"conversation_id": conversationID,
				"event":           name,
				"conn_id":         info.ConnID,
				"duration_ms":     time.Since(info.ConnectedAt).Milliseconds(),
				"reason":          reason,
			},
			"identity": info.identity(),
		},
	})
}
