package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/pairlink/pairlink-api/internal/middleware"
	"github.com/pairlink/pairlink-api/internal/pkg/response"
)

// WebSocket constants
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512KB
)

// CoupleValidator checks that a user belongs to an active couple before
// the relay lets them into its room.
type CoupleValidator interface {
	ValidateCouple(ctx context.Context, coupleID, userID uuid.UUID) (bool, error)
}

// Handler handles the WebSocket relay endpoint
type Handler struct {
	validator   CoupleValidator
	hub         *Hub
	rateLimiter *RateLimiter
	upgrader    websocket.Upgrader
}

// RateLimiter for collaboration updates
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  60,          // 60 updates
		window: time.Minute, // per minute
	}
}

// Allow checks if user can send an update
func (rl *RateLimiter) Allow(userID uuid.UUID) bool {
	if rl.redis == nil {
		return true // No Redis, allow all
	}

	key := fmt.Sprintf("ratelimit:relay:%s", userID)
	ctx := context.Background()

	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return true // Fail open
	}

	if count == 1 {
		rl.redis.Expire(ctx, key, rl.window)
	}

	return count <= int64(rl.limit)
}

// NewHandler creates relay handler
func NewHandler(validator CoupleValidator, hub *Hub, redisClient *redis.Client, allowedOrigins []string) *Handler {
	return &Handler{
		validator:   validator,
		hub:         hub,
		rateLimiter: NewRateLimiter(redisClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				// Allow all in development
				if len(allowedOrigins) == 0 {
					return true
				}

				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}

				log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
				return false
			},
		},
	}
}

// WebSocket handles WS /ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Connection{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	h.hub.Register(client)

	go h.wsReader(client)
	go h.wsWriter(client)
}

func (h *Handler) wsReader(client *Connection) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Room membership for this connection, set by a successful join
	joinedRoom := uuid.Nil

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", client.UserID.String()).Msg("WebSocket read error")
			}
			break
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			h.sendError(client, "Invalid message")
			continue
		}

		switch event.Type {
		case EventJoinRoom:
			if roomID, ok := h.handleJoin(client, joinedRoom, event.Payload); ok {
				joinedRoom = roomID
			}

		case EventCollaborationUpdate:
			h.handleUpdate(client, joinedRoom, event.Payload)

		default:
			h.sendError(client, "Unknown event type")
		}
	}
}

// handleJoin validates room membership and subscribes the connection
func (h *Handler) handleJoin(client *Connection, previous uuid.UUID, payload json.RawMessage) (uuid.UUID, bool) {
	var req JoinRoomPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.sendError(client, "Invalid join payload")
		return uuid.Nil, false
	}

	if req.UserID != client.UserID {
		h.sendError(client, "User ID does not match authenticated user")
		return uuid.Nil, false
	}

	valid, err := h.validator.ValidateCouple(context.Background(), req.CoupleID, client.UserID)
	if err != nil {
		h.sendError(client, "Room validation failed")
		return uuid.Nil, false
	}
	if !valid {
		h.sendError(client, "Not a member of this couple")
		return uuid.Nil, false
	}

	// A connection sits in one room at a time
	if previous != uuid.Nil && previous != req.CoupleID {
		h.hub.LeaveRoom(previous, client.UserID)
	}

	h.hub.JoinRoom(req.CoupleID, client.UserID)

	ack, err := marshalEvent(EventJoinedRoom, &JoinedRoomPayload{CoupleID: req.CoupleID})
	if err != nil {
		return uuid.Nil, false
	}
	h.deliver(client, ack)

	return req.CoupleID, true
}

// handleUpdate relays a collaboration update to the partner, never back
// to the sender
func (h *Handler) handleUpdate(client *Connection, joinedRoom uuid.UUID, payload json.RawMessage) {
	if joinedRoom == uuid.Nil {
		h.sendError(client, "Join a room before sending updates")
		return
	}

	if !h.rateLimiter.Allow(client.UserID) {
		h.sendError(client, "Too many updates, please slow down")
		return
	}

	update := make(map[string]any)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &update); err != nil {
			h.sendError(client, "Invalid update payload")
			return
		}
	}
	update["fromUserId"] = client.UserID

	h.hub.BroadcastToRoom(joinedRoom, EventRemoteUpdate, update, client.UserID)
}

func (h *Handler) sendError(client *Connection, message string) {
	data, err := marshalEvent(EventError, &ErrorPayload{Message: message})
	if err != nil {
		return
	}
	h.deliver(client, data)
}

func (h *Handler) deliver(client *Connection, data []byte) {
	select {
	case client.Send <- data:
	default:
		wsEventsDroppedTotal.Add(1)
	}
}

func (h *Handler) wsWriter(client *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			// Send ping for heartbeat
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
