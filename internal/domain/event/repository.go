package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines shared event data access interface
type Repository interface {
	Create(ctx context.Context, e *SharedEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*SharedEvent, error)
	ListByCouple(ctx context.Context, coupleID uuid.UUID) ([]*SharedEvent, error)
	Update(ctx context.Context, e *SharedEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new shared event repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, e *SharedEvent) error {
	query := `
		INSERT INTO shared_events (id, couple_id, creator_id, content, event_type, pos_x, pos_y, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.CoupleID,
		e.CreatorID,
		e.Content,
		e.EventType,
		e.PosX,
		e.PosY,
		e.Completed,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("event repository create: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*SharedEvent, error) {
	query := `SELECT * FROM shared_events WHERE id = $1`

	var e SharedEvent
	err := r.db.GetContext(ctx, &e, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &e, nil
}

func (r *repository) ListByCouple(ctx context.Context, coupleID uuid.UUID) ([]*SharedEvent, error) {
	query := `SELECT * FROM shared_events WHERE couple_id = $1 ORDER BY created_at DESC`

	var events []*SharedEvent
	err := r.db.SelectContext(ctx, &events, query, coupleID)
	return events, err
}

func (r *repository) Update(ctx context.Context, e *SharedEvent) error {
	query := `
		UPDATE shared_events
		SET content = $2, event_type = $3, pos_x = $4, pos_y = $5, completed = $6, updated_at = $7
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.Content,
		e.EventType,
		e.PosX,
		e.PosY,
		e.Completed,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("event repository update: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM shared_events WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
