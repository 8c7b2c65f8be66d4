package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/pairlink/pairlink-api/internal/domain/user"
)

// Event types exchanged over the WebSocket relay
const (
	EventJoinRoom            = "join-couple-room"
	EventJoinedRoom          = "joined-room"
	EventError               = "error"
	EventCollaborationUpdate = "collaboration-update"
	EventRemoteUpdate        = "remote-update"
	EventCoupleBound         = "couple-bound"
	EventCoupleUnbound       = "couple-unbound"
	EventPartnerOnline       = "partner-online"
	EventPartnerOffline      = "partner-offline"
)

// Event is the wire envelope for all relay messages
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomPayload is sent by a client to enter its couple room
type JoinRoomPayload struct {
	UserID   uuid.UUID `json:"userId"`
	CoupleID uuid.UUID `json:"coupleId"`
}

// JoinedRoomPayload acknowledges a successful room join
type JoinedRoomPayload struct {
	CoupleID uuid.UUID `json:"coupleId"`
}

// ErrorPayload carries a relay-level error back to the client
type ErrorPayload struct {
	Message string `json:"message"`
}

// PresencePayload identifies the user that went online or offline
type PresencePayload struct {
	UserID uuid.UUID `json:"userId"`
}

// CoupleBoundPayload announces a newly formed couple to both members
type CoupleBoundPayload struct {
	CoupleID uuid.UUID             `json:"coupleId"`
	User1ID  uuid.UUID             `json:"user1Id"`
	User2ID  uuid.UUID             `json:"user2Id"`
	Members  []user.PublicIdentity `json:"members"`
}

// CoupleUnboundPayload announces couple dissolution to room members
type CoupleUnboundPayload struct {
	CoupleID uuid.UUID `json:"coupleId"`
}

func marshalEvent(eventType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return json.Marshal(&Event{Type: eventType, Payload: raw})
}
