package dess

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dessmon/dessmon-core/internal/infrastructure/database"
)

// SessionStore persists the authenticated session across process restarts.
//
// Load returns (nil, nil) when no session has been saved.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, session Session) error
	Clear(ctx context.Context) error
}

// SQLiteSessionStore stores the session in the auth_sessions table.
// The table holds at most one row (id = 1).
type SQLiteSessionStore struct {
	db *database.DB
}

// NewSQLiteSessionStore creates a session store backed by the given database.
func NewSQLiteSessionStore(db *database.DB) (*SQLiteSessionStore, error) {
	if db == nil {
		return nil, errors.New("dess: database is required")
	}
	return &SQLiteSessionStore{db: db}, nil
}

// Load returns the persisted session, or nil if none exists.
func (s *SQLiteSessionStore) Load(ctx context.Context) (*Session, error) {
	var (
		session   Session
		expiresAt int64
		createdAt int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT token, secret, expires_at, created_at
		FROM auth_sessions
		WHERE id = 1
	`).Scan(&session.Token, &session.Secret, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dess: loading session: %w", err)
	}

	session.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	session.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &session, nil
}

// Save upserts the session into the single row.
func (s *SQLiteSessionStore) Save(ctx context.Context, session Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (id, token, secret, expires_at, created_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			token = excluded.token,
			secret = excluded.secret,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at
	`, session.Token, session.Secret, session.ExpiresAt.Unix(), session.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("dess: saving session: %w", err)
	}
	return nil
}

// Clear removes any persisted session.
func (s *SQLiteSessionStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE id = 1`); err != nil {
		return fmt.Errorf("dess: clearing session: %w", err)
	}
	return nil
}
