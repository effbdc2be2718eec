package sync

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/finadex/accsync/pkg/db"
	"github.com/finadex/accsync/pkg/provider"
)

const defaultBatchSize = 200

// JournalEngine incrementally pulls journal lines from the provider and
// appends them to the ledger. Entries are never mutated after insertion;
// idempotence comes from the natural dedup key, so a partial run is always
// safe to retry.
type JournalEngine struct {
	client    ProviderAPI
	store     JournalStorage
	cursors   CursorStorage
	docs      DocumentLookup
	batchSize int
	now       func() time.Time
}

// NewJournalEngine creates a new JournalEngine.
func NewJournalEngine(client ProviderAPI, store JournalStorage, cursors CursorStorage, docs DocumentLookup) *JournalEngine {
	return &JournalEngine{
		client:    client,
		store:     store,
		cursors:   cursors,
		docs:      docs,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
}

// Sync pulls journal lines from the last watermark up to today and persists
// new entries in batches. The deadline is cooperative: it is checked between
// batches and never interrupts a fetch in flight. A zero deadline means
// unbounded. Hitting the deadline yields a partial result, not an error.
func (e *JournalEngine) Sync(deadline time.Time) (JournalResult, error) {
	result := JournalResult{State: StateCompleted}

	if e.deadlineExceeded(deadline) {
		result.State = StatePartial
		return result, nil
	}

	now := e.now()
	from, to := e.window(now)

	slog.Info("journal sync started", "from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"))

	lines, err := e.client.FetchAllJournalLines(from, to, deadline)
	if err != nil {
		result.State = StateFailed
		return result, fmt.Errorf("journal sync failed: %w", err)
	}

	entries := make([]db.JournalEntry, 0, len(lines))
	lookups := make(map[string]sql.NullInt64)
	for _, line := range lines {
		entry, err := provider.ToJournalEntry(line)
		if err != nil {
			slog.Warn("skipping journal line", "error", err)
			continue
		}

		// Lines referencing a synced document are linked to its row;
		// unknown references stay NULL.
		if line.DocumentID != "" {
			ref, cached := lookups[line.DocumentID]
			if !cached {
				id, ok, err := e.docs.FindIDByExternalID(line.DocumentID)
				if err != nil {
					slog.Warn("failed to resolve document reference", "external_id", line.DocumentID, "error", err)
				} else if ok {
					ref = sql.NullInt64{Int64: id, Valid: true}
				}
				lookups[line.DocumentID] = ref
			}
			entry.DocumentID = ref
		}

		entries = append(entries, entry)
	}

	for start := 0; start < len(entries); start += e.batchSize {
		end := start + e.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]

		inserted, err := e.store.InsertBatch(batch)
		if err != nil {
			result.State = StateFailed
			return result, fmt.Errorf("journal sync failed: %w", err)
		}

		result.Inserted += inserted
		result.Skipped += len(batch) - inserted

		// Advance the watermark only over fully persisted batches.
		if err := e.cursors.Set(db.CursorJournal, maxEntryDate(batch)); err != nil {
			slog.Warn("failed to advance journal cursor", "error", err)
		}

		if e.deadlineExceeded(deadline) {
			slog.Info("journal sync deadline reached",
				"inserted", result.Inserted, "remaining", len(entries)-end)
			result.State = StatePartial
			return result, nil
		}
	}

	if err := e.cursors.Set(db.CursorJournal, to); err != nil {
		slog.Warn("failed to advance journal cursor", "error", err)
	}

	slog.Info("journal sync completed", "inserted", result.Inserted, "skipped", result.Skipped)
	return result, nil
}

// window determines the sync date range: from the last watermark (re-reading
// the watermark day itself, dedup absorbs the overlap), bounded to the
// current fiscal year, up to today.
func (e *JournalEngine) window(now time.Time) (time.Time, time.Time) {
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	from := yearStart
	if last, ok, err := e.cursors.Get(db.CursorJournal); err != nil {
		slog.Warn("failed to read journal cursor, syncing from fiscal year start", "error", err)
	} else if ok && last.After(yearStart) {
		from = last
	}

	return from, now
}

func (e *JournalEngine) deadlineExceeded(deadline time.Time) bool {
	return !deadline.IsZero() && e.now().After(deadline)
}

func maxEntryDate(entries []db.JournalEntry) time.Time {
	var max time.Time
	for _, entry := range entries {
		if entry.EntryDate.After(max) {
			max = entry.EntryDate
		}
	}
	return max
}
