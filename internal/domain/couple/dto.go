package couple

import (
	"time"

	"github.com/google/uuid"

	"github.com/pairlink/pairlink-api/internal/domain/user"
)

// BindRequestBody for POST /couple/bind
type BindRequestBody struct {
	PartnerID string `json:"partnerId" validate:"required"`
}

// AcceptRequestBody for POST /couple/accept and /couple/reject
type AcceptRequestBody struct {
	RequestID string `json:"requestId" validate:"required"`
}

// ValidateBody for POST /couple/validate
type ValidateBody struct {
	CoupleID string `json:"coupleId" validate:"required"`
}

// BindRequestResponse represents a pending request in API
type BindRequestResponse struct {
	ID         uuid.UUID            `json:"id"`
	FromUserID uuid.UUID            `json:"fromUserId"`
	ToUserID   uuid.UUID            `json:"toUserId"`
	From       *user.PublicIdentity `json:"from,omitempty"`
	CreatedAt  string               `json:"createdAt"`
}

// BindRequestResponseFromEntity converts entity to response
func BindRequestResponseFromEntity(r *BindRequest, from *user.PublicIdentity) *BindRequestResponse {
	return &BindRequestResponse{
		ID:         r.ID,
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		From:       from,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}
}

// CoupleResponse represents a couple in API, with the other member
// attached as partner relative to the requesting user
type CoupleResponse struct {
	ID        uuid.UUID            `json:"id"`
	User1ID   uuid.UUID            `json:"user1Id"`
	User2ID   uuid.UUID            `json:"user2Id"`
	Partner   *user.PublicIdentity `json:"partner,omitempty"`
	CreatedAt string               `json:"createdAt"`
}

// CoupleResponseFromEntity converts entity to response
func CoupleResponseFromEntity(c *Couple, partner *user.PublicIdentity) *CoupleResponse {
	return &CoupleResponse{
		ID:        c.ID,
		User1ID:   c.User1ID,
		User2ID:   c.User2ID,
		Partner:   partner,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// RejectResponse for POST /couple/reject, surfaces the original sender
// for UI feedback
type RejectResponse struct {
	FromUserID uuid.UUID `json:"fromUserId"`
}

// ValidateResponse for POST /couple/validate
type ValidateResponse struct {
	Valid    bool       `json:"valid"`
	CoupleID *uuid.UUID `json:"coupleId,omitempty"`
}
