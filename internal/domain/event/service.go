package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pairlink/pairlink-api/internal/domain/couple"
)

// CoupleResolver resolves couple membership for event scoping.
// The couple repository satisfies this.
type CoupleResolver interface {
	GetActiveCoupleByUser(ctx context.Context, userID uuid.UUID) (*couple.Couple, error)
	GetCoupleByID(ctx context.Context, id uuid.UUID) (*couple.Couple, error)
}

// Service handles shared event business logic. Every operation resolves
// the caller's active couple first; events are only ever visible to the
// two members of the couple that owns them.
type Service struct {
	repo    Repository
	couples CoupleResolver
}

// NewService creates event service
func NewService(repo Repository, couples CoupleResolver) *Service {
	return &Service{repo: repo, couples: couples}
}

// List returns all events owned by the caller's couple, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*EventResponse, error) {
	c, err := s.resolveCouple(ctx, userID)
	if err != nil {
		return nil, err
	}

	events, err := s.repo.ListByCouple(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	items := make([]*EventResponse, len(events))
	for i, e := range events {
		items[i] = EventResponseFromEntity(e)
	}
	return items, nil
}

// Add creates an event owned by the caller's couple
func (s *Service) Add(ctx context.Context, userID uuid.UUID, req *CreateEventRequest) (*EventResponse, error) {
	c, err := s.resolveCouple(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	e := &SharedEvent{
		ID:        uuid.New(),
		CoupleID:  c.ID,
		CreatorID: userID,
		Content:   req.Content,
		EventType: Type(req.EventType),
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.SetPosition(req.Position)

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	return EventResponseFromEntity(e), nil
}

// Update applies a partial update to an event. The caller must be a
// member of the event's owning couple.
func (s *Service) Update(ctx context.Context, userID, eventID uuid.UUID, req *UpdateEventRequest) (*EventResponse, error) {
	e, err := s.authorizeEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	if req.Content != nil {
		e.Content = *req.Content
	}
	if req.EventType != nil {
		e.EventType = Type(*req.EventType)
	}
	if req.Position != nil {
		e.SetPosition(req.Position)
	}
	if req.Completed != nil {
		e.Completed = *req.Completed
	}
	e.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}

	return EventResponseFromEntity(e), nil
}

// Delete removes an event. The caller must be a member of the event's
// owning couple.
func (s *Service) Delete(ctx context.Context, userID, eventID uuid.UUID) error {
	e, err := s.authorizeEvent(ctx, userID, eventID)
	if err != nil {
		return err
	}

	return s.repo.Delete(ctx, e.ID)
}

func (s *Service) resolveCouple(ctx context.Context, userID uuid.UUID) (*couple.Couple, error) {
	c, err := s.couples.GetActiveCoupleByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNoActiveCouple
	}
	return c, nil
}

func (s *Service) authorizeEvent(ctx context.Context, userID, eventID uuid.UUID) (*SharedEvent, error) {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrEventNotFound
	}

	owner, err := s.couples.GetCoupleByID(ctx, e.CoupleID)
	if err != nil {
		return nil, err
	}
	if owner == nil || !owner.HasMember(userID) {
		return nil, ErrNotEventOwner
	}

	return e, nil
}
