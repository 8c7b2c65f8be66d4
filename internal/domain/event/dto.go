package event

import (
	"time"

	"github.com/google/uuid"
)

// CreateEventRequest for POST /couple/events
type CreateEventRequest struct {
	Content   string    `json:"content" validate:"required"`
	EventType string    `json:"type" validate:"required,event_type"`
	Position  *Position `json:"position,omitempty"`
}

// UpdateEventRequest for PUT /couple/events/{id}; nil fields are untouched
type UpdateEventRequest struct {
	Content   *string   `json:"content,omitempty"`
	EventType *string   `json:"type,omitempty" validate:"omitempty,event_type"`
	Position  *Position `json:"position,omitempty"`
	Completed *bool     `json:"completed,omitempty"`
}

// EventResponse represents a shared event in API
type EventResponse struct {
	ID        uuid.UUID `json:"id"`
	CoupleID  uuid.UUID `json:"coupleId"`
	CreatorID uuid.UUID `json:"creatorId"`
	Content   string    `json:"content"`
	EventType string    `json:"type"`
	Position  *Position `json:"position,omitempty"`
	Completed bool      `json:"completed"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

// EventResponseFromEntity converts entity to response
func EventResponseFromEntity(e *SharedEvent) *EventResponse {
	return &EventResponse{
		ID:        e.ID,
		CoupleID:  e.CoupleID,
		CreatorID: e.CreatorID,
		Content:   e.Content,
		EventType: string(e.EventType),
		Position:  e.GetPosition(),
		Completed: e.Completed,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
	}
}
