package couple

import (
	"context"

	"github.com/google/uuid"
)

// PendingRequest is a bind request joined with the sender's identity
type PendingRequest struct {
	BindRequest
	FromNickname  string  `db:"from_nickname"`
	FromAvatarURL *string `db:"from_avatar_url"`
}

// Repository defines couple data access interface
type Repository interface {
	// UpsertRequest inserts a request or, if one already exists for the
	// same (from, to) pair, refreshes its timestamp.
	UpsertRequest(ctx context.Context, req *BindRequest) (*BindRequest, error)
	GetRequestByID(ctx context.Context, id uuid.UUID) (*BindRequest, error)
	ListRequestsTo(ctx context.Context, userID uuid.UUID) ([]*PendingRequest, error)
	DeleteRequest(ctx context.Context, id uuid.UUID) error

	// AcceptRequest atomically creates the couple and deletes every
	// request between its two members in both directions.
	AcceptRequest(ctx context.Context, c *Couple) error

	GetCoupleByID(ctx context.Context, id uuid.UUID) (*Couple, error)
	GetActiveCoupleByUser(ctx context.Context, userID uuid.UUID) (*Couple, error)

	// DeleteCouple atomically deletes all events owned by the couple,
	// then the couple itself.
	DeleteCouple(ctx context.Context, id uuid.UUID) error
}
