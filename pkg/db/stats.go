package db

import (
	"database/sql"
	"fmt"
)

// Stats represents persisted sync statistics.
type Stats struct {
	TotalDocuments     int
	LinkedDocuments    int
	TotalJournalLines  int
	TotalContacts      int
	LastJournalCursor  sql.NullTime
	LastDocumentCursor sql.NullTime
}

// GetStats retrieves sync statistics.
func GetStats(conn *Connection) (*Stats, error) {
	var stats Stats

	err := conn.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&stats.TotalDocuments)
	if err != nil {
		return nil, fmt.Errorf("failed to get document count: %w", err)
	}

	err = conn.QueryRow(`SELECT COUNT(*) FROM documents WHERE contact_id IS NOT NULL`).Scan(&stats.LinkedDocuments)
	if err != nil {
		return nil, fmt.Errorf("failed to get linked document count: %w", err)
	}

	err = conn.QueryRow(`SELECT COUNT(*) FROM journal_entries`).Scan(&stats.TotalJournalLines)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entry count: %w", err)
	}

	err = conn.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&stats.TotalContacts)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact count: %w", err)
	}

	err = conn.QueryRow(
		`SELECT last_date FROM sync_cursors WHERE sync_type = $1`, CursorJournal,
	).Scan(&stats.LastJournalCursor)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get journal cursor: %w", err)
	}

	err = conn.QueryRow(
		`SELECT last_date FROM sync_cursors WHERE sync_type = $1`, CursorDocuments,
	).Scan(&stats.LastDocumentCursor)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get document cursor: %w", err)
	}

	return &stats, nil
}
