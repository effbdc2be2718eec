package sync

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// Normalizer recomputes a document's base-currency columns and keeps its
// mappings on the same exchange rate. The operation is idempotent and is
// routinely invoked in bulk, so unusable documents are logged and skipped
// rather than failing the batch.
type Normalizer struct {
	docs  DocumentStorage
	rates RateResolver
}

// NewNormalizer creates a new Normalizer.
func NewNormalizer(docs DocumentStorage, rates RateResolver) *Normalizer {
	return &Normalizer{
		docs:  docs,
		rates: rates,
	}
}

// SyncDocumentCurrency normalizes one document. A missing document or a
// missing issue date is a no-op. An unresolvable rate leaves the stored
// values untouched so a later run can retry; it never zeroes them.
// The document and all its mappings are written atomically with one rate.
func (n *Normalizer) SyncDocumentCurrency(documentID int64) error {
	doc, err := n.docs.GetByID(documentID)
	if err != nil {
		return fmt.Errorf("currency sync failed for document %d: %w", documentID, err)
	}
	if doc == nil {
		slog.Warn("currency sync skipped: document not found", "document_id", documentID)
		return nil
	}

	if doc.Currency == n.rates.BaseCurrency() {
		one := decimal.NewFromInt(1)
		if err := n.docs.UpdateCurrency(doc.ID, doc.Amount, one); err != nil {
			return fmt.Errorf("currency sync failed for document %d: %w", documentID, err)
		}
		return nil
	}

	if !doc.IssueDate.Valid {
		slog.Warn("currency sync skipped: document has no issue date", "document_id", documentID)
		return nil
	}

	rate, ok, err := n.rates.Rate(doc.IssueDate.Time, doc.Currency)
	if err != nil {
		slog.Warn("currency sync skipped: rate lookup failed",
			"document_id", documentID, "currency", doc.Currency, "error", err)
		return nil
	}
	if !ok {
		slog.Warn("currency sync skipped: rate unavailable",
			"document_id", documentID, "currency", doc.Currency,
			"date", doc.IssueDate.Time.Format("2006-01-02"))
		return nil
	}

	amountCZK := doc.Amount.Mul(rate).Round(2)
	if err := n.docs.UpdateCurrency(doc.ID, amountCZK, rate); err != nil {
		return fmt.Errorf("currency sync failed for document %d: %w", documentID, err)
	}

	return nil
}

// SyncPending normalizes every document whose derived currency columns are
// missing. It reports how many documents were processed.
func (n *Normalizer) SyncPending() (int, error) {
	ids, err := n.docs.ListPendingCurrency()
	if err != nil {
		return 0, fmt.Errorf("failed to list documents pending currency sync: %w", err)
	}

	processed := 0
	for _, id := range ids {
		if err := n.SyncDocumentCurrency(id); err != nil {
			slog.Warn("currency sync failed", "document_id", id, "error", err)
			continue
		}
		processed++
	}

	return processed, nil
}
