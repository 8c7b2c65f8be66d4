package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pairlink/pairlink-api/internal/domain/user"
	"github.com/pairlink/pairlink-api/internal/pkg/jwt"
)

type memUserRepo struct {
	users map[uuid.UUID]*user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (r *memUserRepo) Create(ctx context.Context, u *user.User) error {
	cp := *u
	r.users[cp.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.users[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func newAuthService() (*Service, *jwt.Service) {
	jwtService := jwt.NewService("test-secret", time.Hour, 24*time.Hour)
	return NewService(newMemUserRepo(), jwtService), jwtService
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	svc, jwtService := newAuthService()

	reg, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "  Pair@Example.COM ",
		Nickname: "pair",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Tokens.AccessToken == "" || reg.Tokens.RefreshToken == "" {
		t.Fatal("expected tokens issued on register")
	}

	// Email is normalized, so the canonical form logs in
	login, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "pair@example.com",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Fatalf("expected same user, got %s and %s", reg.User.ID, login.User.ID)
	}

	claims, err := jwtService.ValidateAccessToken(login.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UserID != reg.User.ID {
		t.Fatalf("expected claims for %s, got %s", reg.User.ID, claims.UserID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()

	req := &RegisterRequest{Email: "dup@example.com", Nickname: "a", Password: "secret-password"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Register(context.Background(), req); err != ErrEmailAlreadyExists {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthService()

	if _, err := svc.Register(context.Background(), &RegisterRequest{
		Email: "a@example.com", Nickname: "a", Password: "secret-password",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(context.Background(), &LoginRequest{
		Email: "a@example.com", Password: "wrong-password",
	}); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := svc.Login(context.Background(), &LoginRequest{
		Email: "missing@example.com", Password: "secret-password",
	}); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestMe(t *testing.T) {
	svc, _ := newAuthService()

	reg, err := svc.Register(context.Background(), &RegisterRequest{
		Email: "me@example.com", Nickname: "me", Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	identity, err := svc.Me(context.Background(), reg.User.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if identity.Nickname != "me" {
		t.Fatalf("expected nickname me, got %s", identity.Nickname)
	}

	if _, err := svc.Me(context.Background(), uuid.New()); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
