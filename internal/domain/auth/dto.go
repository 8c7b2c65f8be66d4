package auth

import (
	"time"

	"github.com/pairlink/pairlink-api/internal/domain/user"
)

// RegisterRequest for POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Nickname string `json:"nickname" validate:"required,min=1,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair carries issued tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthResponse for register/login
type AuthResponse struct {
	User   user.PublicIdentity `json:"user"`
	Tokens TokenPair           `json:"tokens"`
}

func newAuthResponse(u *user.User, access, refresh string, accessTTL time.Duration) *AuthResponse {
	return &AuthResponse{
		User: u.Identity(),
		Tokens: TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    int64(accessTTL.Seconds()),
		},
	}
}
