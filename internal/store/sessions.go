package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SaveSession upserts a serialized session blob. Persistence is best
// effort from the engine's point of view; the in-memory state is the
// source of truth for a live process.
func (s *SQLiteStore) SaveSession(ctx context.Context, sessionID, kind string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (session_id, kind, blob, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, kind) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		sessionID, kind, blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return unavailable("save session", err)
	}
	return nil
}

// LoadSession returns the stored blob, or nil when none exists.
func (s *SQLiteStore) LoadSession(ctx context.Context, sessionID, kind string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT blob FROM sessions WHERE session_id = ? AND kind = ?",
		sessionID, kind).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("load session", err)
	}
	return blob, nil
}

// DeleteSession removes a stored blob. Deleting a missing blob is not
// an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID, kind string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE session_id = ? AND kind = ?", sessionID, kind)
	if err != nil {
		return unavailable("delete session", err)
	}
	return nil
}
