package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountSide selects which side of a journal entry a query filters on.
type AccountSide string

const (
	SideDebit  AccountSide = "account_md"
	SideCredit AccountSide = "account_d"
)

// JournalEntry represents one double-entry ledger line.
// Entries are immutable once inserted.
type JournalEntry struct {
	ID         int64
	EntryDate  time.Time
	AccountMD  string
	AccountD   string
	Amount     decimal.Decimal
	Memo       string
	DocumentID sql.NullInt64
	FiscalYear int
	DedupKey   string
	CreatedAt  time.Time
}

// EntryDedupKey computes the natural deduplication key of a journal entry.
// The provider exposes no stable entry id, so the key is derived from
// date, both account codes, amount and memo.
func EntryDedupKey(entryDate time.Time, accountMD, accountD string, amount decimal.Decimal, memo string) string {
	raw := strings.Join([]string{
		entryDate.Format("2006-01-02"),
		accountMD,
		accountD,
		amount.StringFixed(2),
		memo,
	}, "|")

	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// JournalStore manages journal entry rows.
type JournalStore struct {
	conn *Connection
}

// NewJournalStore creates a new JournalStore.
func NewJournalStore(conn *Connection) *JournalStore {
	return &JournalStore{conn: conn}
}

// InsertBatch appends a batch of entries, skipping rows whose dedup key is
// already present. It reports how many rows were actually inserted, so
// re-running a sync over the same window never double-inserts.
func (s *JournalStore) InsertBatch(entries []JournalEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	inserted := 0
	err := s.conn.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO journal_entries
				(entry_date, account_md, account_d, amount, memo, document_id, fiscal_year, dedup_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (dedup_key) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			res, err := stmt.Exec(
				e.EntryDate,
				e.AccountMD,
				e.AccountD,
				e.Amount,
				e.Memo,
				e.DocumentID,
				e.FiscalYear,
				e.DedupKey,
			)
			if err != nil {
				return fmt.Errorf("failed to insert journal entry: %w", err)
			}

			rows, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			inserted += int(rows)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// Exists checks whether an entry with the given dedup key is already stored.
func (s *JournalStore) Exists(dedupKey string) (bool, error) {
	var count int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM journal_entries WHERE dedup_key = $1`, dedupKey,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check journal entry: %w", err)
	}

	return count > 0, nil
}

// SumAmount sums entry amounts over a date range where the given account
// side matches the code prefix. Entries whose memo matches any of the
// exclusion patterns (SQL LIKE syntax) are left out.
func (s *JournalStore) SumAmount(side AccountSide, prefix string, from, to time.Time, excludeMemos []string) (decimal.Decimal, error) {
	if side != SideDebit && side != SideCredit {
		return decimal.Zero, fmt.Errorf("invalid account side: %s", side)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `
		SELECT COALESCE(SUM(amount), 0)
		FROM journal_entries
		WHERE %s LIKE $1
		  AND entry_date >= $2 AND entry_date <= $3
	`, string(side))

	args := []interface{}{prefix + "%", from, to}
	for _, pattern := range excludeMemos {
		args = append(args, pattern)
		fmt.Fprintf(&sb, " AND memo NOT LIKE $%d", len(args))
	}

	var sum decimal.Decimal
	if err := s.conn.QueryRow(sb.String(), args...).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum journal amounts: %w", err)
	}

	return sum, nil
}

// ListByRange retrieves entries in a date range ordered by date, then by
// insertion order, for deterministic report iteration.
func (s *JournalStore) ListByRange(from, to time.Time) ([]JournalEntry, error) {
	query := `
		SELECT id, entry_date, account_md, account_d, amount, memo,
		       document_id, fiscal_year, dedup_key, created_at
		FROM journal_entries
		WHERE entry_date >= $1 AND entry_date <= $2
		ORDER BY entry_date, id
	`

	rows, err := s.conn.Query(query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(
			&e.ID,
			&e.EntryDate,
			&e.AccountMD,
			&e.AccountD,
			&e.Amount,
			&e.Memo,
			&e.DocumentID,
			&e.FiscalYear,
			&e.DedupKey,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// LatestEntryDate returns the most recent entry date, or zero time when the
// ledger is empty.
func (s *JournalStore) LatestEntryDate() (time.Time, error) {
	var latest sql.NullTime
	err := s.conn.QueryRow(`SELECT MAX(entry_date) FROM journal_entries`).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest entry date: %w", err)
	}

	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time, nil
}
