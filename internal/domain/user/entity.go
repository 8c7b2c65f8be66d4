package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents a user account
type User struct {
	ID           uuid.UUID      `db:"id"`
	Email        string         `db:"email"`
	Nickname     string         `db:"nickname"`
	PasswordHash string         `db:"password_hash"`
	AvatarURL    sql.NullString `db:"avatar_url"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PublicIdentity is the projection of a user other members may see
type PublicIdentity struct {
	ID        uuid.UUID `json:"id"`
	Nickname  string    `json:"nickname"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

// Identity returns the user's public identity view
func (u *User) Identity() PublicIdentity {
	p := PublicIdentity{ID: u.ID, Nickname: u.Nickname}
	if u.AvatarURL.Valid {
		p.AvatarURL = &u.AvatarURL.String
	}
	return p
}
