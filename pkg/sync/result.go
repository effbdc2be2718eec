// Package sync implements the journal, document and currency sync engines
// against the accounting provider.
package sync

import (
	"time"

	"github.com/finadex/accsync/pkg/db"
	"github.com/finadex/accsync/pkg/provider"
	"github.com/shopspring/decimal"
)

// RunState describes how a sync run ended. Partial is not an error: the
// run hit its deadline and a re-invocation will continue where dedup
// leaves off.
type RunState string

const (
	StateCompleted RunState = "completed"
	StatePartial   RunState = "partial"
	StateFailed    RunState = "failed"
)

// JournalResult reports the outcome of one journal sync run.
type JournalResult struct {
	State    RunState `json:"state"`
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
}

// DocumentResult reports the outcome of one document sync run.
type DocumentResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Stats aggregates per-engine counts of a full sync run.
type Stats struct {
	RunID              string         `json:"run_id"`
	Journal            JournalResult  `json:"journal"`
	SalesDocuments     DocumentResult `json:"sales_documents"`
	PurchaseDocuments  DocumentResult `json:"purchase_documents"`
	ContactsSynced     int            `json:"contacts_synced"`
	DocumentsLinked    int            `json:"documents_linked"`
	CurrencyNormalized int            `json:"currency_normalized"`
	State              RunState       `json:"state"`
}

// ProviderAPI is the slice of the provider client the engines depend on.
type ProviderAPI interface {
	FetchAllDocuments(docType string, since, deadline time.Time) ([]provider.Document, error)
	FetchAllJournalLines(from, to, deadline time.Time) ([]provider.JournalLine, error)
	FetchAllContacts() ([]provider.Contact, error)
	FetchAllReceivables() ([]provider.PaymentStatus, error)
	FetchAllPayables() ([]provider.PaymentStatus, error)
}

// JournalStorage persists journal entries append-only with dedup.
type JournalStorage interface {
	InsertBatch(entries []db.JournalEntry) (int, error)
}

// CursorStorage persists per sync type watermarks.
type CursorStorage interface {
	Get(syncType string) (time.Time, bool, error)
	Set(syncType string, lastDate time.Time) error
}

// DocumentStorage persists documents and their mappings.
type DocumentStorage interface {
	Upsert(doc db.Document) (created bool, err error)
	GetByID(id int64) (*db.Document, error)
	ListUnlinked() ([]db.Document, error)
	ListPendingCurrency() ([]int64, error)
	SetContact(documentID, contactID int64) error
	UpdateCurrency(documentID int64, amountCZK, rate decimal.Decimal) error
}

// DocumentLookup resolves provider document references to stored rows.
type DocumentLookup interface {
	FindIDByExternalID(externalID string) (int64, bool, error)
}

// ContactStorage persists contacts.
type ContactStorage interface {
	Upsert(contact db.Contact) error
	ListAll() ([]db.Contact, error)
}

// RateResolver resolves exchange rates to the base currency.
type RateResolver interface {
	Rate(date time.Time, currency string) (rate decimal.Decimal, ok bool, err error)
	BaseCurrency() string
}
