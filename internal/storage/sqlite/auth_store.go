package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/pyquest/internal/auth"
	"github.com/felixgeelhaar/pyquest/internal/domain"
)

// AuthStore implements auth.Repository on SQLite. It backs the
// single-binary deployment where no Postgres is available.
type AuthStore struct {
	db *DB
}

// NewAuthStore creates an auth store on top of an opened database.
func NewAuthStore(db *DB) *AuthStore {
	return &AuthStore{db: db}
}

func (s *AuthStore) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID.String(), user.Email, user.Name, user.PasswordHash,
		user.CreatedAt.UTC(), user.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *AuthStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (s *AuthStore) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users WHERE id = ?`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	return user, err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		user domain.User
		id   string
	)
	err := row.Scan(&id, &user.Email, &user.Name, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	user.ID = uid
	return &user, nil
}

func (s *AuthStore) CreateSession(ctx context.Context, session *domain.AuthSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (id, user_id, token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		session.ID.String(), session.UserID.String(), session.Token,
		session.ExpiresAt.UTC(), session.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *AuthStore) GetSessionByToken(ctx context.Context, token string) (*domain.AuthSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM auth_sessions WHERE token = ?`, token)

	var (
		sess   domain.AuthSession
		id     string
		userID string
	)
	err := row.Scan(&id, &userID, &sess.Token, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sess.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	if sess.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("parse session user id: %w", err)
	}
	return &sess, nil
}

func (s *AuthStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM auth_sessions WHERE id = ?`, id.String())
	return err
}

func (s *AuthStore) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM auth_sessions WHERE user_id = ?`, userID.String())
	return err
}

func (s *AuthStore) DeleteExpiredSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now().UTC())
	return err
}
