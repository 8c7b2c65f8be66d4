package couple

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Couple represents an active pairing between exactly two users.
// User1ID/User2ID are stored in canonical byte order so a pair can be
// looked up by either member in either argument order.
type Couple struct {
	ID        uuid.UUID `db:"id"`
	User1ID   uuid.UUID `db:"user1_id"`
	User2ID   uuid.UUID `db:"user2_id"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

// BindRequest represents a one-directional pairing proposal
type BindRequest struct {
	ID         uuid.UUID `db:"id"`
	FromUserID uuid.UUID `db:"from_user_id"`
	ToUserID   uuid.UUID `db:"to_user_id"`
	CreatedAt  time.Time `db:"created_at"`
}

// PartnerOf returns the other member of the couple, or uuid.Nil if
// userID is not a member.
func (c *Couple) PartnerOf(userID uuid.UUID) uuid.UUID {
	switch userID {
	case c.User1ID:
		return c.User2ID
	case c.User2ID:
		return c.User1ID
	}
	return uuid.Nil
}

// HasMember reports whether userID is one of the couple's members
func (c *Couple) HasMember(userID uuid.UUID) bool {
	return userID == c.User1ID || userID == c.User2ID
}

// OrderPair returns the two ids in canonical (min, max) byte order
func OrderPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}
