package realtime

import (
	"context"
	"encoding/json"
	"expvar"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/pairlink/pairlink-api/internal/domain/couple"
	"github.com/pairlink/pairlink-api/internal/domain/user"
)

// Redis key prefixes
const (
	roomChannelPrefix = "couple:room:"
	presenceKey       = "couple:presence:online"
	userEventsChannel = "couple:user_events"
)

var (
	wsConnectionsGauge   = expvar.NewInt("websocket_connections")
	wsEventsSentTotal    = expvar.NewInt("websocket_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("websocket_events_dropped_total")
)

// roomMessage is the cross-instance envelope published on room channels
type roomMessage struct {
	Event     json.RawMessage `json:"event"`
	ExcludeID string          `json:"exclude_id,omitempty"`
	CloseRoom bool            `json:"close_room,omitempty"`
}

type userEventMessage struct {
	UserID           string          `json:"user_id"`
	Payload          json.RawMessage `json:"payload"`
	SenderInstanceID string          `json:"sender_instance_id"`
}

// Connection represents a WebSocket connection
type Connection struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub manages WebSocket connections with Redis Pub/Sub for scalability.
// Rooms are keyed by couple ID and members only enter a room after an
// explicit, validated join.
type Hub struct {
	// Local connections (this server instance only)
	connections map[uuid.UUID]map[*Connection]bool

	// Local room subscriptions: coupleID -> set of userIDs on this server
	localRooms map[uuid.UUID]map[uuid.UUID]bool

	redis  *redis.Client
	pubsub *redis.PubSub

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc

	instanceID         string
	publishUserEventFn func(ctx context.Context, channel string, payload []byte) error
}

// NewHub creates a new WebSocket hub with Redis Pub/Sub
func NewHub(redisClient *redis.Client) *Hub {
	return NewHubWithInstanceID(redisClient, uuid.NewString())
}

// NewHubWithInstanceID creates a new WebSocket hub with explicit instance identifier.
func NewHubWithInstanceID(redisClient *redis.Client, instanceID string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		localRooms:  make(map[uuid.UUID]map[uuid.UUID]bool),
		redis:       redisClient,
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
		instanceID:  instanceID,
	}

	if redisClient != nil {
		h.pubsub = redisClient.PSubscribe(ctx, roomChannelPrefix+"*", userEventsChannel)
		h.publishUserEventFn = func(ctx context.Context, channel string, payload []byte) error {
			return redisClient.Publish(ctx, channel, payload).Err()
		}
	}

	return h
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.connections[conn.UserID] == nil {
				h.connections[conn.UserID] = make(map[*Connection]bool)
			}
			h.connections[conn.UserID][conn] = true
			h.mu.Unlock()
			wsConnectionsGauge.Add(1)

			h.setPresence(conn.UserID, true)
			log.Debug().Str("user_id", conn.UserID.String()).Msg("User connected to WebSocket")

		case conn := <-h.unregister:
			lastConnection := false
			var leftRooms []uuid.UUID

			h.mu.Lock()
			if conns, ok := h.connections[conn.UserID]; ok {
				if _, exists := conns[conn]; exists {
					delete(conns, conn)
					close(conn.Send)
					wsConnectionsGauge.Add(-1)
				}
				if len(conns) == 0 {
					delete(h.connections, conn.UserID)
					lastConnection = true

					// Remove user from rooms only when their last
					// connection on this instance is gone
					for roomID, users := range h.localRooms {
						if users[conn.UserID] {
							delete(users, conn.UserID)
							leftRooms = append(leftRooms, roomID)
						}
						if len(users) == 0 {
							delete(h.localRooms, roomID)
						}
					}
				}
			}
			h.mu.Unlock()

			if lastConnection {
				h.setPresence(conn.UserID, false)
				for _, roomID := range leftRooms {
					h.notifyPresence(roomID, conn.UserID, false)
				}
			}
			log.Debug().Str("user_id", conn.UserID.String()).Msg("User disconnected from WebSocket")
		}
	}
}

// runRedisSubscriber listens for messages from Redis Pub/Sub
func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			// Room messages: couple:room:<uuid>
			if len(msg.Channel) > len(roomChannelPrefix) &&
				msg.Channel[:len(roomChannelPrefix)] == roomChannelPrefix {

				roomID, err := uuid.Parse(msg.Channel[len(roomChannelPrefix):])
				if err != nil {
					continue
				}

				var rm roomMessage
				if err := json.Unmarshal([]byte(msg.Payload), &rm); err != nil {
					continue
				}

				h.deliverRoomMessage(roomID, &rm)
			}

			if msg.Channel == userEventsChannel {
				h.handleUserEventPayload(msg.Payload)
			}
		}
	}
}

func (h *Hub) deliverRoomMessage(roomID uuid.UUID, rm *roomMessage) {
	exclude := uuid.Nil
	if rm.ExcludeID != "" {
		if id, err := uuid.Parse(rm.ExcludeID); err == nil {
			exclude = id
		}
	}

	h.broadcastLocal(roomID, []byte(rm.Event), exclude)

	if rm.CloseRoom {
		h.mu.Lock()
		delete(h.localRooms, roomID)
		h.mu.Unlock()
	}
}

func (h *Hub) handleUserEventPayload(payload string) {
	var event userEventMessage
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return
	}
	if event.SenderInstanceID == h.instanceID {
		return
	}
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return
	}
	h.sendLocal(userID, []byte(event.Payload))
}

// broadcastLocal sends raw event data to room members connected to THIS
// server, skipping the excluded user
func (h *Hub) broadcastLocal(roomID uuid.UUID, data []byte, exclude uuid.UUID) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users, ok := h.localRooms[roomID]
	if !ok {
		return
	}

	for userID := range users {
		if userID == exclude {
			continue
		}
		if conns, ok := h.connections[userID]; ok {
			for conn := range conns {
				select {
				case conn.Send <- data:
					wsEventsSentTotal.Add(1)
				default:
					// Buffer full, skip this message
					wsEventsDroppedTotal.Add(1)
					log.Warn().Str("user_id", userID.String()).Msg("WebSocket send buffer full")
				}
			}
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// JoinRoom adds user to its couple room and announces presence to the
// partner. Callers must have validated membership beforehand.
func (h *Hub) JoinRoom(coupleID, userID uuid.UUID) {
	h.mu.Lock()
	if h.localRooms[coupleID] == nil {
		h.localRooms[coupleID] = make(map[uuid.UUID]bool)
	}
	h.localRooms[coupleID][userID] = true
	h.mu.Unlock()

	h.notifyPresence(coupleID, userID, true)
}

// LeaveRoom removes user from a couple room
func (h *Hub) LeaveRoom(coupleID, userID uuid.UUID) {
	h.mu.Lock()
	if h.localRooms[coupleID] != nil {
		delete(h.localRooms[coupleID], userID)
		if len(h.localRooms[coupleID]) == 0 {
			delete(h.localRooms, coupleID)
		}
	}
	h.mu.Unlock()

	h.notifyPresence(coupleID, userID, false)
}

func (h *Hub) notifyPresence(coupleID, userID uuid.UUID, online bool) {
	eventType := EventPartnerOnline
	if !online {
		eventType = EventPartnerOffline
	}
	data, err := marshalEvent(eventType, &PresencePayload{UserID: userID})
	if err != nil {
		return
	}
	h.publishToRoom(coupleID, data, userID, false)
}

// BroadcastToRoom sends event to room members across ALL servers via
// Redis, excluding the originating user
func (h *Hub) BroadcastToRoom(coupleID uuid.UUID, eventType string, payload any, exclude uuid.UUID) {
	data, err := marshalEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal WebSocket event")
		return
	}
	log.Debug().Str("couple_id", coupleID.String()).Str("event_type", eventType).Msg("Broadcasting WebSocket event")
	h.publishToRoom(coupleID, data, exclude, false)
}

func (h *Hub) publishToRoom(coupleID uuid.UUID, data []byte, exclude uuid.UUID, closeRoom bool) {
	if h.redis != nil {
		rm := roomMessage{Event: data, CloseRoom: closeRoom}
		if exclude != uuid.Nil {
			rm.ExcludeID = exclude.String()
		}
		payload, err := json.Marshal(&rm)
		if err != nil {
			return
		}

		channel := roomChannelPrefix + coupleID.String()
		if err := h.redis.Publish(h.ctx, channel, payload).Err(); err != nil {
			log.Error().Err(err).Str("channel", channel).Msg("Redis publish failed")
			// Fallback to local delivery
			h.deliverRoomMessage(coupleID, &rm)
		}
		return
	}

	h.deliverRoomMessage(coupleID, &roomMessage{
		Event:     data,
		ExcludeID: excludeString(exclude),
		CloseRoom: closeRoom,
	})
}

func excludeString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// CoupleBound delivers the bound event to both members, connected or
// not yet in a room
func (h *Hub) CoupleBound(ctx context.Context, c *couple.Couple, members []user.PublicIdentity) {
	data, err := marshalEvent(EventCoupleBound, &CoupleBoundPayload{
		CoupleID: c.ID,
		User1ID:  c.User1ID,
		User2ID:  c.User2ID,
		Members:  members,
	})
	if err != nil {
		return
	}

	h.SendToUser(c.User1ID, data)
	h.SendToUser(c.User2ID, data)
}

// CoupleUnbound announces dissolution to the room and tears it down on
// every instance
func (h *Hub) CoupleUnbound(ctx context.Context, coupleID uuid.UUID) {
	data, err := marshalEvent(EventCoupleUnbound, &CoupleUnboundPayload{CoupleID: coupleID})
	if err != nil {
		return
	}
	h.publishToRoom(coupleID, data, uuid.Nil, true)
}

// SendToUser sends raw event data to all of the user's connections on
// any server
func (h *Hub) SendToUser(userID uuid.UUID, data []byte) {
	h.sendLocal(userID, data)
	_ = h.publishUserEvent(userID, data)
}

func (h *Hub) sendLocal(userID uuid.UUID, data []byte) {
	// Hold the lock across the iteration; unregister mutates this map.
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.connections[userID]
	if !ok {
		return
	}

	for conn := range conns {
		select {
		case conn.Send <- data:
			wsEventsSentTotal.Add(1)
		default:
			// Buffer full
			wsEventsDroppedTotal.Add(1)
		}
	}
}

func (h *Hub) publishUserEvent(userID uuid.UUID, data []byte) error {
	if h.publishUserEventFn == nil {
		return nil
	}

	event := userEventMessage{
		UserID:           userID.String(),
		Payload:          data,
		SenderInstanceID: h.instanceID,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.publishUserEventFn(h.ctx, userEventsChannel, payload)
}

// setPresence records user online/offline status in Redis
func (h *Hub) setPresence(userID uuid.UUID, online bool) {
	if h.redis == nil {
		return
	}

	ctx := context.Background()

	if online {
		h.redis.SAdd(ctx, presenceKey, userID.String())
		// Auto-cleanup if an instance dies without SRem
		h.redis.Expire(ctx, presenceKey, 5*time.Minute)
	} else {
		h.redis.SRem(ctx, presenceKey, userID.String())
	}
}

// IsOnline checks if user is online (across all servers)
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	if h.redis == nil {
		h.mu.RLock()
		conns, ok := h.connections[userID]
		h.mu.RUnlock()
		return ok && len(conns) > 0
	}

	return h.redis.SIsMember(context.Background(), presenceKey, userID.String()).Val()
}

// GetConnectionCount returns number of local connections
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.connections {
		total += len(conns)
	}
	return total
}

// LocalRoomUserCount returns number of users subscribed locally to room.
func (h *Hub) LocalRoomUserCount(coupleID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.localRooms[coupleID])
}

// IsUserInRoom reports whether user has joined the room locally.
func (h *Hub) IsUserInRoom(coupleID, userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := h.localRooms[coupleID]
	if users == nil {
		return false
	}
	return users[userID]
}

// Shutdown gracefully shuts down the hub
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}

var _ couple.LifecycleNotifier = (*Hub)(nil)
