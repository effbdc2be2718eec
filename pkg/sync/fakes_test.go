package sync

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/finadex/accsync/pkg/db"
	"github.com/finadex/accsync/pkg/provider"
	"github.com/shopspring/decimal"
)

var errTestProvider = errors.New("provider unavailable")

// fakeProvider serves canned provider data.
type fakeProvider struct {
	documents   map[string][]provider.Document
	lines       []provider.JournalLine
	contacts    []provider.Contact
	receivables []provider.PaymentStatus
	payables    []provider.PaymentStatus
	err         error

	lastSince time.Time
}

func (f *fakeProvider) FetchAllDocuments(docType string, since, deadline time.Time) ([]provider.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastSince = since
	return f.documents[docType], nil
}

func (f *fakeProvider) FetchAllJournalLines(from, to, deadline time.Time) ([]provider.JournalLine, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.lines, nil
}

func (f *fakeProvider) FetchAllContacts() ([]provider.Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.contacts, nil
}

func (f *fakeProvider) FetchAllReceivables() ([]provider.PaymentStatus, error) {
	return f.receivables, nil
}

func (f *fakeProvider) FetchAllPayables() ([]provider.PaymentStatus, error) {
	return f.payables, nil
}

// fakeJournalStorage stores entries keyed by dedup key.
type fakeJournalStorage struct {
	entries map[string]db.JournalEntry
}

func newFakeJournalStorage() *fakeJournalStorage {
	return &fakeJournalStorage{entries: make(map[string]db.JournalEntry)}
}

func (f *fakeJournalStorage) InsertBatch(entries []db.JournalEntry) (int, error) {
	inserted := 0
	for _, e := range entries {
		if _, exists := f.entries[e.DedupKey]; exists {
			continue
		}
		f.entries[e.DedupKey] = e
		inserted++
	}
	return inserted, nil
}

// fakeCursorStorage keeps watermarks in memory.
type fakeCursorStorage struct {
	cursors map[string]time.Time
}

func newFakeCursorStorage() *fakeCursorStorage {
	return &fakeCursorStorage{cursors: make(map[string]time.Time)}
}

func (f *fakeCursorStorage) Get(syncType string) (time.Time, bool, error) {
	last, ok := f.cursors[syncType]
	return last, ok, nil
}

func (f *fakeCursorStorage) Set(syncType string, lastDate time.Time) error {
	f.cursors[syncType] = lastDate
	return nil
}

// fakeDocumentStorage mimics the Postgres document store, including the
// mapping recompute inside UpdateCurrency.
type fakeDocumentStorage struct {
	docs     map[int64]*db.Document
	byKey    map[string]int64
	mappings map[int64][]db.Mapping
	nextID   int64
}

func newFakeDocumentStorage() *fakeDocumentStorage {
	return &fakeDocumentStorage{
		docs:     make(map[int64]*db.Document),
		byKey:    make(map[string]int64),
		mappings: make(map[int64][]db.Mapping),
	}
}

func docKey(docType db.DocumentType, externalID string) string {
	return fmt.Sprintf("%s|%s", docType, externalID)
}

func (f *fakeDocumentStorage) Upsert(doc db.Document) (bool, error) {
	key := docKey(doc.Type, doc.ExternalID)
	if id, exists := f.byKey[key]; exists {
		stored := f.docs[id]
		doc.ID = id
		doc.ContactID = stored.ContactID
		doc.AmountCZK = stored.AmountCZK
		doc.ExchangeRate = stored.ExchangeRate
		if stored.ManuallyPaid {
			doc.PaidAmount = stored.PaidAmount
			doc.ManuallyPaid = true
		}
		f.docs[id] = &doc
		return false, nil
	}

	f.nextID++
	doc.ID = f.nextID
	f.docs[doc.ID] = &doc
	f.byKey[key] = doc.ID
	return true, nil
}

func (f *fakeDocumentStorage) GetByID(id int64) (*db.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocumentStorage) FindIDByExternalID(externalID string) (int64, bool, error) {
	for id := int64(1); id <= f.nextID; id++ {
		if doc, ok := f.docs[id]; ok && doc.ExternalID == externalID {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (f *fakeDocumentStorage) ListUnlinked() ([]db.Document, error) {
	var docs []db.Document
	for id := int64(1); id <= f.nextID; id++ {
		if doc, ok := f.docs[id]; ok && !doc.ContactID.Valid {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (f *fakeDocumentStorage) ListPendingCurrency() ([]int64, error) {
	var ids []int64
	for id := int64(1); id <= f.nextID; id++ {
		if doc, ok := f.docs[id]; ok && (!doc.AmountCZK.Valid || !doc.ExchangeRate.Valid) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeDocumentStorage) SetContact(documentID, contactID int64) error {
	doc, ok := f.docs[documentID]
	if !ok {
		return errors.New("document not found")
	}
	doc.ContactID = sqlNullInt64(contactID)
	return nil
}

func (f *fakeDocumentStorage) UpdateCurrency(documentID int64, amountCZK, rate decimal.Decimal) error {
	doc, ok := f.docs[documentID]
	if !ok {
		return errors.New("document not found")
	}
	doc.AmountCZK = decimal.NullDecimal{Decimal: amountCZK, Valid: true}
	doc.ExchangeRate = decimal.NullDecimal{Decimal: rate, Valid: true}

	mappings := f.mappings[documentID]
	for i := range mappings {
		mappings[i].AmountCZK = decimal.NullDecimal{
			Decimal: mappings[i].Amount.Mul(rate).Round(2),
			Valid:   true,
		}
	}
	return nil
}

// fakeContactStorage keeps contacts in insertion order.
type fakeContactStorage struct {
	contacts []db.Contact
	nextID   int64
}

func (f *fakeContactStorage) Upsert(contact db.Contact) error {
	for i, c := range f.contacts {
		if c.ProviderID == contact.ProviderID {
			contact.ID = c.ID
			f.contacts[i] = contact
			return nil
		}
	}
	f.nextID++
	contact.ID = f.nextID
	f.contacts = append(f.contacts, contact)
	return nil
}

func (f *fakeContactStorage) ListAll() ([]db.Contact, error) {
	return append([]db.Contact(nil), f.contacts...), nil
}

// fakeResolver resolves rates from a fixed table.
type fakeResolver struct {
	base  string
	rates map[string]decimal.Decimal // keyed by currency
	err   error
	calls int
}

func (f *fakeResolver) Rate(date time.Time, currency string) (decimal.Decimal, bool, error) {
	f.calls++
	if currency == f.base {
		return decimal.NewFromInt(1), true, nil
	}
	if f.err != nil {
		return decimal.Zero, false, f.err
	}
	rate, ok := f.rates[currency]
	return rate, ok, nil
}

func (f *fakeResolver) BaseCurrency() string {
	return f.base
}

func sqlNullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
