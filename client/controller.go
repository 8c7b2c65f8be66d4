package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pairlink/pairlink-api/internal/domain/couple"
	"github.com/pairlink/pairlink-api/internal/domain/realtime"
	"github.com/pairlink/pairlink-api/internal/domain/user"
)

// State is a snapshot of the controller's local cache
type State struct {
	Couple        *couple.CoupleResponse
	Partner       *user.PublicIdentity
	Pending       []*couple.BindRequestResponse
	Connected     bool
	PartnerOnline bool
	LastErr       error
}

// UpdateFunc receives collaboration updates relayed from the partner
type UpdateFunc func(fromUserID uuid.UUID, data map[string]any)

// Controller keeps a local mirror of the caller's pairing state. All
// mutations write through HTTP first and touch the cache only on
// success; the WebSocket subscription keeps the mirror fresh.
type Controller struct {
	client *Client
	userID uuid.UUID
	wsURL  string
	token  string

	mu            sync.RWMutex
	couple        *couple.CoupleResponse
	pending       []*couple.BindRequestResponse
	connected     bool
	partnerOnline bool
	lastErr       error

	onChange func(State)
	onUpdate UpdateFunc

	wsMu sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

// NewController creates a controller for the user owning the token.
// wsURL is the relay endpoint, e.g. ws://host/ws.
func NewController(apiClient *Client, wsURL, token string, userID uuid.UUID) *Controller {
	return &Controller{
		client: apiClient,
		userID: userID,
		wsURL:  wsURL,
		token:  token,
	}
}

// OnChange registers a callback invoked after every cache mutation
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// OnUpdate registers a callback for partner collaboration updates
func (c *Controller) OnUpdate(fn UpdateFunc) {
	c.mu.Lock()
	c.onUpdate = fn
	c.mu.Unlock()
}

// State returns a snapshot of the cache
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Couple:        c.couple,
		Pending:       c.pending,
		Connected:     c.connected,
		PartnerOnline: c.partnerOnline,
		LastErr:       c.lastErr,
	}
	if c.couple != nil {
		s.Partner = c.couple.Partner
	}
	return s
}

func (c *Controller) notifyChange() {
	c.mu.RLock()
	fn := c.onChange
	snapshot := c.snapshotLocked()
	c.mu.RUnlock()

	if fn != nil {
		fn(snapshot)
	}
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.notifyChange()
}

// Refresh reloads relation and pending requests from the server
func (c *Controller) Refresh(ctx context.Context) error {
	rel, err := c.client.Relation(ctx)
	if err != nil {
		c.setError(err)
		return err
	}
	pending, err := c.client.Requests(ctx)
	if err != nil {
		c.setError(err)
		return err
	}

	c.mu.Lock()
	c.couple = rel
	c.pending = pending
	c.lastErr = nil
	c.mu.Unlock()
	c.notifyChange()

	return nil
}

// Bind sends a pairing request to partnerID
func (c *Controller) Bind(ctx context.Context, partnerID uuid.UUID) (*couple.BindRequestResponse, error) {
	req, err := c.client.Bind(ctx, partnerID)
	if err != nil {
		c.setError(err)
		return nil, err
	}

	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
	c.notifyChange()

	return req, nil
}

// Accept accepts a pending request and caches the resulting couple
func (c *Controller) Accept(ctx context.Context, requestID uuid.UUID) (*couple.CoupleResponse, error) {
	resp, err := c.client.Accept(ctx, requestID)
	if err != nil {
		c.setError(err)
		return nil, err
	}

	c.mu.Lock()
	c.couple = resp
	c.pending = removeRequest(c.pending, requestID)
	c.lastErr = nil
	c.mu.Unlock()
	c.notifyChange()

	c.joinRoom()
	return resp, nil
}

// Reject declines a pending request and drops it from the cache
func (c *Controller) Reject(ctx context.Context, requestID uuid.UUID) error {
	if _, err := c.client.Reject(ctx, requestID); err != nil {
		c.setError(err)
		return err
	}

	c.mu.Lock()
	c.pending = removeRequest(c.pending, requestID)
	c.lastErr = nil
	c.mu.Unlock()
	c.notifyChange()

	return nil
}

// Unbind dissolves the couple and clears the cache
func (c *Controller) Unbind(ctx context.Context) error {
	if err := c.client.Unbind(ctx); err != nil {
		c.setError(err)
		return err
	}

	c.mu.Lock()
	c.couple = nil
	c.partnerOnline = false
	c.lastErr = nil
	c.mu.Unlock()
	c.notifyChange()

	return nil
}

// SendUpdate relays a collaboration update to the partner
func (c *Controller) SendUpdate(data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.writeEvent(&realtime.Event{
		Type:    realtime.EventCollaborationUpdate,
		Payload: payload,
	})
}

func removeRequest(pending []*couple.BindRequestResponse, requestID uuid.UUID) []*couple.BindRequestResponse {
	out := pending[:0]
	for _, r := range pending {
		if r.ID != requestID {
			out = append(out, r)
		}
	}
	return out
}

// Connect dials the relay and starts the subscription loop. If a couple
// is already cached the room is joined immediately.
func (c *Controller) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL+"?token="+c.token, nil)
	if err != nil {
		c.setError(err)
		return err
	}

	c.wsMu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	c.wsMu.Unlock()

	c.mu.Lock()
	c.connected = true
	c.lastErr = nil
	c.mu.Unlock()
	c.notifyChange()

	c.joinRoom()
	go c.readLoop(conn)

	return nil
}

// Close tears down the WebSocket subscription
func (c *Controller) Close() error {
	c.wsMu.Lock()
	conn := c.conn
	c.conn = nil
	c.wsMu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Controller) joinRoom() {
	c.mu.RLock()
	cpl := c.couple
	c.mu.RUnlock()

	if cpl == nil {
		return
	}

	payload, err := json.Marshal(&realtime.JoinRoomPayload{
		UserID:   c.userID,
		CoupleID: cpl.ID,
	})
	if err != nil {
		return
	}
	_ = c.writeEvent(&realtime.Event{Type: realtime.EventJoinRoom, Payload: payload})
}

func (c *Controller) writeEvent(event *realtime.Event) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	if c.conn == nil {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteJSON(event)
}

func (c *Controller) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.partnerOnline = false
		c.mu.Unlock()
		c.notifyChange()
	}()

	for {
		var event realtime.Event
		if err := conn.ReadJSON(&event); err != nil {
			return
		}
		c.handleEvent(&event)
	}
}

func (c *Controller) handleEvent(event *realtime.Event) {
	switch event.Type {
	case realtime.EventCoupleBound:
		// Re-fetch the authoritative relation, then enter the room
		if err := c.Refresh(context.Background()); err == nil {
			c.joinRoom()
		}

	case realtime.EventCoupleUnbound:
		// Server already dissolved the couple, clear locally
		c.mu.Lock()
		c.couple = nil
		c.partnerOnline = false
		c.mu.Unlock()
		c.notifyChange()

	case realtime.EventPartnerOnline:
		c.mu.Lock()
		c.partnerOnline = true
		c.mu.Unlock()
		c.notifyChange()

	case realtime.EventPartnerOffline:
		c.mu.Lock()
		c.partnerOnline = false
		c.mu.Unlock()
		c.notifyChange()

	case realtime.EventRemoteUpdate:
		c.mu.RLock()
		fn := c.onUpdate
		c.mu.RUnlock()
		if fn == nil {
			return
		}

		update := make(map[string]any)
		if err := json.Unmarshal(event.Payload, &update); err != nil {
			return
		}
		fromUserID := uuid.Nil
		if raw, ok := update["fromUserId"].(string); ok {
			if id, err := uuid.Parse(raw); err == nil {
				fromUserID = id
			}
			delete(update, "fromUserId")
		}
		fn(fromUserID, update)

	case realtime.EventError:
		var p realtime.ErrorPayload
		if err := json.Unmarshal(event.Payload, &p); err == nil && p.Message != "" {
			c.setError(&APIError{Code: "relay_error", Message: p.Message})
		}
	}
}
