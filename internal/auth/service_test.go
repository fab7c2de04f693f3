package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/pyquest/internal/domain"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	users    map[uuid.UUID]*domain.User
	byEmail  map[string]*domain.User
	sessions map[string]*domain.AuthSession
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    make(map[uuid.UUID]*domain.User),
		byEmail:  make(map[string]*domain.User),
		sessions: make(map[string]*domain.AuthSession),
	}
}

func (f *fakeRepo) CreateUser(ctx context.Context, user *domain.User) error {
	f.users[user.ID] = user
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeRepo) CreateSession(ctx context.Context, session *domain.AuthSession) error {
	f.sessions[session.Token] = session
	return nil
}

func (f *fakeRepo) GetSessionByToken(ctx context.Context, token string) (*domain.AuthSession, error) {
	s, ok := f.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeRepo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	for token, s := range f.sessions {
		if s.ID == id {
			delete(f.sessions, token)
		}
	}
	return nil
}

func (f *fakeRepo) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	for token, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, token)
		}
	}
	return nil
}

func (f *fakeRepo) DeleteExpiredSessions(ctx context.Context) error {
	for token, s := range f.sessions {
		if s.IsExpired() {
			delete(f.sessions, token)
		}
	}
	return nil
}

func TestService_Register(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, time.Hour)

	user, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "Ada@Example.com",
		Name:     "Ada",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("email = %q; want lowercased", user.Email)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in plain text")
	}
	if user.PasswordHash == "" {
		t.Error("password hash empty")
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, time.Hour)

	req := RegisterRequest{Email: "ada@example.com", Name: "Ada", Password: "correct-horse"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrEmailExists) {
		t.Errorf("error = %v; want ErrEmailExists", err)
	}
}

func TestService_Register_WeakPassword(t *testing.T) {
	svc := NewService(newFakeRepo(), time.Hour)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "ada@example.com",
		Name:     "Ada",
		Password: "short",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Errorf("error = %v; want ErrWeakPassword", err)
	}
}

func TestService_Login(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, time.Hour)

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email: "ada@example.com", Name: "Ada", Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.Token == "" {
		t.Error("empty session token")
	}
	if resp.Session.UserID != resp.User.ID {
		t.Error("session not bound to user")
	}
	if !resp.Session.ExpiresAt.After(time.Now()) {
		t.Error("session already expired")
	}
}

func TestService_Login_BadCredentials(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, time.Hour)

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email: "ada@example.com", Name: "Ada", Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Email: "ada@example.com", Password: "wrong"}},
		{"unknown email", LoginRequest{Email: "nobody@example.com", Password: "correct-horse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(context.Background(), tt.req); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("error = %v; want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestService_ValidateSession(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, time.Hour)

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email: "ada@example.com", Name: "Ada", Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	resp, err := svc.Login(context.Background(), LoginRequest{
		Email: "ada@example.com", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	user, sess, err := svc.ValidateSession(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("user email = %q", user.Email)
	}
	if sess.Token != resp.Token {
		t.Error("token mismatch")
	}
}

func TestService_ValidateSession_Expired(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, -time.Minute) // sessions expire immediately

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email: "ada@example.com", Name: "Ada", Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	resp, err := svc.Login(context.Background(), LoginRequest{
		Email: "ada@example.com", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if _, _, err := svc.ValidateSession(context.Background(), resp.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("error = %v; want ErrSessionExpired", err)
	}
	// Expired session is removed
	if _, ok := repo.sessions[resp.Token]; ok {
		t.Error("expired session not deleted")
	}
}

func TestService_Logout(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, time.Hour)

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email: "ada@example.com", Name: "Ada", Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	resp, err := svc.Login(context.Background(), LoginRequest{
		Email: "ada@example.com", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.Logout(context.Background(), resp.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, _, err := svc.ValidateSession(context.Background(), resp.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v; want ErrSessionNotFound", err)
	}

	// Logging out again reports the missing session
	if err := svc.Logout(context.Background(), resp.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Logout() error = %v; want ErrSessionNotFound", err)
	}
}
