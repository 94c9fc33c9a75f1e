package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopneo/console/internal/core/session"
)

const DefaultSessionName = "default"

// SessionStore persists the sealed operator credential in console_sessions,
// one row per named session.
type SessionStore struct {
	db     *Client
	name   string
	sealer *session.Sealer
}

func NewSessionStore(db *Client, name string, sealer *session.Sealer) *SessionStore {
	if name == "" {
		name = DefaultSessionName
	}
	return &SessionStore{db: db, name: name, sealer: sealer}
}

func (s *SessionStore) Load(ctx context.Context) (string, error) {
	query := `SELECT token FROM console_sessions WHERE name = $1`
	var sealed []byte
	err := s.db.DB.QueryRowContext(ctx, query, s.name).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading session %q: %w", s.name, err)
	}
	return s.sealer.Open(sealed)
}

func (s *SessionStore) Save(ctx context.Context, token string) error {
	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO console_sessions (name, token, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET token = EXCLUDED.token, updated_at = NOW()`
	if _, err := s.db.DB.ExecContext(ctx, query, s.name, sealed); err != nil {
		return fmt.Errorf("saving session %q: %w", s.name, err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	query := `DELETE FROM console_sessions WHERE name = $1`
	if _, err := s.db.DB.ExecContext(ctx, query, s.name); err != nil {
		return fmt.Errorf("clearing session %q: %w", s.name, err)
	}
	return nil
}
