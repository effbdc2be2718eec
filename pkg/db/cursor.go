package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Sync cursor types. Each engine keeps its own watermark.
const (
	CursorJournal   = "journal"
	CursorDocuments = "documents"
)

// CursorStore persists per-type sync watermarks so incremental syncs
// resume correctly across process restarts.
type CursorStore struct {
	conn *Connection
}

// NewCursorStore creates a new CursorStore.
func NewCursorStore(conn *Connection) *CursorStore {
	return &CursorStore{conn: conn}
}

// Get retrieves the last successfully processed date for a sync type.
// The second return value reports whether a cursor exists.
func (s *CursorStore) Get(syncType string) (time.Time, bool, error) {
	var last time.Time
	err := s.conn.QueryRow(
		`SELECT last_date FROM sync_cursors WHERE sync_type = $1`, syncType,
	).Scan(&last)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get sync cursor: %w", err)
	}

	return last, true, nil
}

// Set records the last successfully processed date for a sync type.
func (s *CursorStore) Set(syncType string, lastDate time.Time) error {
	query := `
		INSERT INTO sync_cursors (sync_type, last_date, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (sync_type) DO UPDATE SET
			last_date = excluded.last_date,
			updated_at = now()
	`

	if _, err := s.conn.Exec(query, syncType, lastDate); err != nil {
		return fmt.Errorf("failed to set sync cursor: %w", err)
	}

	return nil
}
