package event

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Type tags a shared event
type Type string

const (
	TypeTodo        Type = "todo"
	TypeNote        Type = "note"
	TypeAnniversary Type = "anniversary"
	TypeMood        Type = "mood"
)

// SharedEvent is an item owned jointly by the two members of a couple
type SharedEvent struct {
	ID        uuid.UUID       `db:"id"`
	CoupleID  uuid.UUID       `db:"couple_id"`
	CreatorID uuid.UUID       `db:"creator_id"`
	Content   string          `db:"content"`
	EventType Type            `db:"event_type"`
	PosX      sql.NullFloat64 `db:"pos_x"`
	PosY      sql.NullFloat64 `db:"pos_y"`
	Completed bool            `db:"completed"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Position is an optional 2D placement on the shared board
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SetPosition stores an optional position on the entity
func (e *SharedEvent) SetPosition(p *Position) {
	if p == nil {
		e.PosX = sql.NullFloat64{}
		e.PosY = sql.NullFloat64{}
		return
	}
	e.PosX = sql.NullFloat64{Float64: p.X, Valid: true}
	e.PosY = sql.NullFloat64{Float64: p.Y, Valid: true}
}

// GetPosition returns the stored position, or nil if unset
func (e *SharedEvent) GetPosition() *Position {
	if !e.PosX.Valid || !e.PosY.Valid {
		return nil
	}
	return &Position{X: e.PosX.Float64, Y: e.PosY.Float64}
}
