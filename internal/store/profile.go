package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ProfileStore persists the active profile chosen on each signed-in device,
// keyed by session id.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// GetSelection returns the stored profile name, or "" when none was chosen.
func (s *ProfileStore) GetSelection(sessionID string) (string, error) {
	var owner string
	err := s.db.QueryRow(`SELECT owner FROM profile_selections WHERE session_id = ?`, sessionID).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get profile selection: %w", err)
	}
	return owner, nil
}

func (s *ProfileStore) SetSelection(sessionID, userID, owner string) error {
	_, err := s.db.Exec(
		`INSERT INTO profile_selections (session_id, user_id, owner, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET owner = excluded.owner, updated_at = excluded.updated_at`,
		sessionID, userID, owner, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set profile selection: %w", err)
	}
	return nil
}

func (s *ProfileStore) ClearSelection(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM profile_selections WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("clear profile selection: %w", err)
	}
	return nil
}

// DeleteStale removes selections untouched since before cutoff.
func (s *ProfileStore) DeleteStale(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM profile_selections WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete stale selections: %w", err)
	}
	return result.RowsAffected()
}
