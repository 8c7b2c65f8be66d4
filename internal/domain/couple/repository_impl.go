package couple

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new couple repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) UpsertRequest(ctx context.Context, req *BindRequest) (*BindRequest, error) {
	query := `
		INSERT INTO bind_requests (id, from_user_id, to_user_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (from_user_id, to_user_id)
		DO UPDATE SET created_at = EXCLUDED.created_at
		RETURNING id, from_user_id, to_user_id, created_at
	`
	var out BindRequest
	err := r.db.GetContext(ctx, &out, query, req.ID, req.FromUserID, req.ToUserID, req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("couple repository upsert request: %w", err)
	}

	return &out, nil
}

func (r *repository) GetRequestByID(ctx context.Context, id uuid.UUID) (*BindRequest, error) {
	query := `SELECT * FROM bind_requests WHERE id = $1`

	var req BindRequest
	err := r.db.GetContext(ctx, &req, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &req, nil
}

func (r *repository) ListRequestsTo(ctx context.Context, userID uuid.UUID) ([]*PendingRequest, error) {
	query := `
		SELECT r.id, r.from_user_id, r.to_user_id, r.created_at,
		       u.nickname AS from_nickname, u.avatar_url AS from_avatar_url
		FROM bind_requests r
		JOIN users u ON u.id = r.from_user_id
		WHERE r.to_user_id = $1
		ORDER BY r.created_at DESC
	`
	var requests []*PendingRequest
	err := r.db.SelectContext(ctx, &requests, query, userID)
	return requests, err
}

func (r *repository) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM bind_requests WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *repository) AcceptRequest(ctx context.Context, c *Couple) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Serialize accepts touching either member. The partial unique
	// indexes are per column, so a user sitting in user1 of one couple
	// and user2 of another would pass them; the row locks plus the
	// membership check below are the real guard.
	if _, err := tx.ExecContext(ctx,
		`SELECT id FROM users WHERE id IN ($1, $2) FOR UPDATE`,
		c.User1ID, c.User2ID,
	); err != nil {
		return fmt.Errorf("couple repository lock members: %w", err)
	}

	var active int
	err = tx.GetContext(ctx, &active, `
		SELECT COUNT(*) FROM couples
		WHERE is_active AND (user1_id IN ($1, $2) OR user2_id IN ($1, $2))
	`, c.User1ID, c.User2ID)
	if err != nil {
		return fmt.Errorf("couple repository check membership: %w", err)
	}
	if active > 0 {
		return ErrAlreadyPaired
	}

	query := `
		INSERT INTO couples (id, user1_id, user2_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.ExecContext(ctx, query, c.ID, c.User1ID, c.User2ID, c.IsActive, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyPaired
		}
		return fmt.Errorf("couple repository create couple: %w", err)
	}

	// Clear the accepted request and any mirror proposal
	_, err = tx.ExecContext(ctx, `
		DELETE FROM bind_requests
		WHERE (from_user_id = $1 AND to_user_id = $2)
		   OR (from_user_id = $2 AND to_user_id = $1)
	`, c.User1ID, c.User2ID)
	if err != nil {
		return fmt.Errorf("couple repository clear requests: %w", err)
	}

	return tx.Commit()
}

func (r *repository) GetCoupleByID(ctx context.Context, id uuid.UUID) (*Couple, error) {
	query := `SELECT * FROM couples WHERE id = $1`

	var c Couple
	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &c, nil
}

func (r *repository) GetActiveCoupleByUser(ctx context.Context, userID uuid.UUID) (*Couple, error) {
	query := `
		SELECT * FROM couples
		WHERE is_active AND (user1_id = $1 OR user2_id = $1)
	`
	var c Couple
	err := r.db.GetContext(ctx, &c, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &c, nil
}

func (r *repository) DeleteCouple(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shared_events WHERE couple_id = $1`, id); err != nil {
		return fmt.Errorf("couple repository delete events: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM couples WHERE id = $1`, id); err != nil {
		return fmt.Errorf("couple repository delete couple: %w", err)
	}

	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
