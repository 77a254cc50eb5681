package localstate

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hall-dev/halldev-go/internal/domain/entities/playground"
)

// FlagIntroShown marks that a client has already seen the intro animation
const FlagIntroShown = "intro_shown"

// Store provides typed access to the local state tables
type Store struct {
	db *DB
}

// NewStore creates a store over an open connection
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// GetFlag reports whether a flag is set for a client
func (s *Store) GetFlag(ctx context.Context, clientID, flag string) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM client_flags WHERE client_id = ? AND flag = ?`,
		clientID, flag).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

// SetFlag sets or clears a flag for a client
func (s *Store) SetFlag(ctx context.Context, clientID, flag string, set bool) error {
	value := "0"
	if set {
		value = "1"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_flags (client_id, flag, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(client_id, flag) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		clientID, flag, value, time.Now().UTC())
	return err
}

// RecordAdminSession stores an issued admin token so it can be revoked
func (s *Store) RecordAdminSession(ctx context.Context, tokenID string, issuedAt, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (token_id, issued_at, expires_at) VALUES (?, ?, ?)`,
		tokenID, issuedAt.UTC(), expiresAt.UTC())
	return err
}

// AdminSessionActive reports whether a token id is still valid
func (s *Store) AdminSessionActive(ctx context.Context, tokenID string) (bool, error) {
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM admin_sessions WHERE token_id = ?`,
		tokenID).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return time.Now().UTC().Before(expiresAt), nil
}

// RevokeAdminSession ends an admin session (the Escape key path)
func (s *Store) RevokeAdminSession(ctx context.Context, tokenID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM admin_sessions WHERE token_id = ?`, tokenID)
	return err
}

// SaveRegistration persists a playground registration so returning
// visitors skip the gate
func (s *Store) SaveRegistration(ctx context.Context, clientID string, reg playground.Registration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playground_registrations (id, client_id, name, email, company, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		reg.ID, clientID, reg.Name, reg.Email, reg.Company, reg.RegisteredAt.UTC())
	return err
}

// GetRegistration returns the most recent registration for a client,
// or nil when the gate has never been passed
func (s *Store) GetRegistration(ctx context.Context, clientID string) (*playground.Registration, error) {
	var reg playground.Registration
	var company sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, company, registered_at FROM playground_registrations
		 WHERE client_id = ? ORDER BY registered_at DESC LIMIT 1`,
		clientID).Scan(&reg.ID, &reg.Name, &reg.Email, &company, &reg.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	reg.Company = company.String
	return &reg, nil
}

// RecordExport journals an export action
func (s *Store) RecordExport(ctx context.Context, id, clientID, videoID, format string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO export_journal (id, client_id, video_id, format, exported_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, clientID, videoID, format, time.Now().UTC())
	return err
}
