package sync

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/finadex/accsync/pkg/db"
	"github.com/finadex/accsync/pkg/provider"
	"github.com/shopspring/decimal"
)

// backdateGrace is how far behind the documents watermark a sync re-reads,
// covering documents entered late with an earlier issue date.
const backdateGrace = 30 * 24 * time.Hour

// DocumentEngine upserts provider documents, merges payment status and
// links documents to contacts. All steps are idempotent: re-running against
// unchanged provider data changes nothing.
type DocumentEngine struct {
	client   ProviderAPI
	docs     DocumentStorage
	contacts ContactStorage
	cursors  CursorStorage
}

// NewDocumentEngine creates a new DocumentEngine.
func NewDocumentEngine(client ProviderAPI, docs DocumentStorage, contacts ContactStorage, cursors CursorStorage) *DocumentEngine {
	return &DocumentEngine{
		client:   client,
		docs:     docs,
		contacts: contacts,
		cursors:  cursors,
	}
}

// Sync upserts all documents of one type, refreshing paid amounts from the
// receivables or payables endpoint, matched by document reference. The
// fetch is bounded to issue dates at or after the documents watermark;
// re-reading the watermark day itself is absorbed by the upsert.
func (e *DocumentEngine) Sync(docType db.DocumentType) (DocumentResult, error) {
	var result DocumentResult

	since, _, err := e.cursors.Get(db.CursorDocuments)
	if err != nil {
		slog.Warn("failed to read documents cursor, syncing from the beginning", "error", err)
		since = time.Time{}
	}
	if !since.IsZero() {
		// Documents can be entered late with an earlier issue date; re-read
		// a grace window behind the watermark and let the upsert absorb it.
		since = since.Add(-backdateGrace)
	}

	slog.Info("document sync started", "type", docType, "since", since.Format("2006-01-02"))

	docs, err := e.client.FetchAllDocuments(provider.WireDocType(docType), since, time.Time{})
	if err != nil {
		return result, fmt.Errorf("document sync failed (type=%s): %w", docType, err)
	}

	paid, err := e.fetchPaidAmounts(docType)
	if err != nil {
		// Payment data is merged best-effort; the next run refreshes it.
		slog.Warn("failed to fetch payment status, keeping stored paid amounts", "type", docType, "error", err)
		paid = nil
	}

	for _, pd := range docs {
		row, err := provider.ToDocumentRow(pd, docType)
		if err != nil {
			slog.Warn("skipping document", "error", err)
			continue
		}

		if amount, ok := paid[row.ExternalID]; ok {
			row.PaidAmount = amount
		}

		created, err := e.docs.Upsert(row)
		if err != nil {
			slog.Warn("failed to upsert document", "external_id", row.ExternalID, "error", err)
			continue
		}

		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	slog.Info("document sync completed", "type", docType, "created", result.Created, "updated", result.Updated)
	return result, nil
}

// advanceCursor records the documents watermark. Both document types share
// one cursor, so it is advanced only after a run synced both; advancing it
// mid-run would starve the second type's fetch.
func (e *DocumentEngine) advanceCursor(lastDate time.Time) {
	if err := e.cursors.Set(db.CursorDocuments, lastDate); err != nil {
		slog.Warn("failed to advance documents cursor", "error", err)
	}
}

func (e *DocumentEngine) fetchPaidAmounts(docType db.DocumentType) (map[string]decimal.Decimal, error) {
	var payments []provider.PaymentStatus
	var err error

	if docType == db.DocTypeSales {
		payments, err = e.client.FetchAllReceivables()
	} else {
		payments, err = e.client.FetchAllPayables()
	}
	if err != nil {
		return nil, err
	}

	paid := make(map[string]decimal.Decimal, len(payments))
	for _, p := range payments {
		paid[p.DocumentID] = p.PaidAmount
	}
	return paid, nil
}

// SyncContacts mirrors all provider contacts into the store.
func (e *DocumentEngine) SyncContacts() (int, error) {
	contacts, err := e.client.FetchAllContacts()
	if err != nil {
		return 0, fmt.Errorf("contact sync failed: %w", err)
	}

	synced := 0
	for _, pc := range contacts {
		row, err := provider.ToContactRow(pc)
		if err != nil {
			slog.Warn("skipping contact", "error", err)
			continue
		}

		if err := e.contacts.Upsert(row); err != nil {
			slog.Warn("failed to upsert contact", "provider_id", row.ProviderID, "error", err)
			continue
		}
		synced++
	}

	slog.Info("contact sync completed", "synced", synced)
	return synced, nil
}

// LinkContacts links unlinked documents to contacts. Matching is by exact
// company number first, then by normalized name; on a shared name the
// lowest contact id wins, so repeated runs always pick the same contact.
// Documents without a match stay unlinked and are retried on the next run.
func (e *DocumentEngine) LinkContacts() (int, error) {
	unlinked, err := e.docs.ListUnlinked()
	if err != nil {
		return 0, fmt.Errorf("linking failed: %w", err)
	}
	if len(unlinked) == 0 {
		return 0, nil
	}

	contacts, err := e.contacts.ListAll()
	if err != nil {
		return 0, fmt.Errorf("linking failed: %w", err)
	}

	// Contacts arrive ordered by id; first entry wins on duplicate keys.
	byCompanyNumber := make(map[string]int64)
	byName := make(map[string]int64)
	for _, c := range contacts {
		if c.CompanyNumber.Valid && c.CompanyNumber.String != "" {
			key := strings.TrimSpace(c.CompanyNumber.String)
			if _, exists := byCompanyNumber[key]; !exists {
				byCompanyNumber[key] = c.ID
			}
		}
		if key := normalizeName(c.Name); key != "" {
			if _, exists := byName[key]; !exists {
				byName[key] = c.ID
			}
		}
	}

	linked := 0
	for _, doc := range unlinked {
		contactID, ok := matchContact(doc, byCompanyNumber, byName)
		if !ok {
			continue
		}

		if err := e.docs.SetContact(doc.ID, contactID); err != nil {
			slog.Warn("failed to link document", "document_id", doc.ID, "error", err)
			continue
		}
		linked++
	}

	slog.Info("document linking completed", "linked", linked, "unmatched", len(unlinked)-linked)
	return linked, nil
}

func matchContact(doc db.Document, byCompanyNumber, byName map[string]int64) (int64, bool) {
	if doc.CompanyNumber.Valid {
		if id, ok := byCompanyNumber[strings.TrimSpace(doc.CompanyNumber.String)]; ok {
			return id, true
		}
	}

	if doc.ContactName.Valid {
		if id, ok := byName[normalizeName(doc.ContactName.String)]; ok {
			return id, true
		}
	}

	return 0, false
}

// normalizeName lowercases a counterparty name and collapses whitespace.
func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
