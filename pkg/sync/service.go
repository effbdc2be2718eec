package sync

import (
	"errors"
	"log/slog"
	"time"

	"github.com/finadex/accsync/pkg/db"
	"github.com/finadex/accsync/pkg/provider"
	"github.com/google/uuid"
)

// Service orchestrates a full sync run: journal, documents for both types,
// contact linking and bulk currency normalization. Partial completion
// (deadline hit) is success; only authentication and configuration
// failures abort the run.
type Service struct {
	journal    *JournalEngine
	documents  *DocumentEngine
	normalizer *Normalizer
}

// NewService creates a new sync Service.
func NewService(journal *JournalEngine, documents *DocumentEngine, normalizer *Normalizer) *Service {
	return &Service{
		journal:    journal,
		documents:  documents,
		normalizer: normalizer,
	}
}

// SyncAll runs all engines sequentially. The deadline applies to the
// journal engine; a zero deadline means unbounded. The returned stats are
// meaningful even when an error is returned.
func (s *Service) SyncAll(deadline time.Time) (Stats, error) {
	stats := Stats{
		RunID: uuid.NewString(),
		State: StateCompleted,
	}

	slog.Info("full sync started", "run_id", stats.RunID)

	journalResult, err := s.journal.Sync(deadline)
	stats.Journal = journalResult
	if err != nil {
		stats.State = StateFailed
		return stats, err
	}
	if journalResult.State == StatePartial {
		stats.State = StatePartial
	}

	contactsSynced, err := s.documents.SyncContacts()
	stats.ContactsSynced = contactsSynced
	if err != nil {
		if errors.Is(err, provider.ErrAuth) {
			stats.State = StateFailed
			return stats, err
		}
		slog.Warn("contact sync failed, continuing", "error", err)
	}

	docRunStart := time.Now()

	salesResult, err := s.documents.Sync(db.DocTypeSales)
	stats.SalesDocuments = salesResult
	if err != nil {
		stats.State = StateFailed
		return stats, err
	}

	purchaseResult, err := s.documents.Sync(db.DocTypePurchase)
	stats.PurchaseDocuments = purchaseResult
	if err != nil {
		stats.State = StateFailed
		return stats, err
	}

	// Both types synced; advance the shared documents watermark.
	s.documents.advanceCursor(docRunStart)

	linked, err := s.documents.LinkContacts()
	stats.DocumentsLinked = linked
	if err != nil {
		slog.Warn("document linking failed, continuing", "error", err)
	}

	normalized, err := s.normalizer.SyncPending()
	stats.CurrencyNormalized = normalized
	if err != nil {
		slog.Warn("bulk currency sync failed, continuing", "error", err)
	}

	slog.Info("full sync finished",
		"run_id", stats.RunID,
		"state", stats.State,
		"journal_inserted", stats.Journal.Inserted,
		"sales_created", stats.SalesDocuments.Created,
		"purchase_created", stats.PurchaseDocuments.Created,
		"linked", stats.DocumentsLinked,
		"normalized", stats.CurrencyNormalized,
	)

	return stats, nil
}
