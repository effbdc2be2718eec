package provider

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/finadex/accsync/pkg/db"
)

// Provider-side document type values.
const (
	WireTypeSales    = "sales"
	WireTypePurchase = "purchase"
)

// WireDocType translates an internal document type to the provider's value.
func WireDocType(docType db.DocumentType) string {
	if docType == db.DocTypePurchase {
		return WireTypePurchase
	}
	return WireTypeSales
}

// ToDocumentRow maps a provider document onto the internal document shape.
// The raw payload is preserved verbatim; report logic never reads it.
func ToDocumentRow(pd Document, docType db.DocumentType) (db.Document, error) {
	if pd.ID == "" {
		return db.Document{}, fmt.Errorf("document without id")
	}
	if pd.Currency == "" {
		return db.Document{}, fmt.Errorf("document %s without currency", pd.ID)
	}

	doc := db.Document{
		ExternalID:    pd.ID,
		Type:          docType,
		Number:        nullString(pd.Number),
		ContactName:   nullString(pd.ClientName),
		CompanyNumber: nullString(pd.CompanyNumber),
		TaxNumber:     nullString(pd.TaxNumber),
		Amount:        pd.Amount,
		Currency:      pd.Currency,
		Status:        nullString(pd.Status),
		RawData:       pd.Raw,
	}

	var err error
	if doc.IssueDate, err = nullDate(pd.IssueDate); err != nil {
		return db.Document{}, fmt.Errorf("document %s: invalid issue_date: %w", pd.ID, err)
	}
	if doc.DueDate, err = nullDate(pd.DueDate); err != nil {
		return db.Document{}, fmt.Errorf("document %s: invalid due_date: %w", pd.ID, err)
	}
	if doc.TaxDate, err = nullDate(pd.TaxDate); err != nil {
		return db.Document{}, fmt.Errorf("document %s: invalid tax_date: %w", pd.ID, err)
	}

	return doc, nil
}

// ToJournalEntry maps a provider journal line onto the internal entry shape
// and computes its dedup key.
func ToJournalEntry(line JournalLine) (db.JournalEntry, error) {
	if line.DebitAccount == "" || line.CreditAccount == "" {
		return db.JournalEntry{}, fmt.Errorf("journal line missing account code")
	}

	entryDate, err := time.Parse("2006-01-02", line.Date)
	if err != nil {
		return db.JournalEntry{}, fmt.Errorf("invalid journal line date %q: %w", line.Date, err)
	}

	return db.JournalEntry{
		EntryDate:  entryDate,
		AccountMD:  line.DebitAccount,
		AccountD:   line.CreditAccount,
		Amount:     line.Amount,
		Memo:       line.Text,
		FiscalYear: entryDate.Year(),
		DedupKey:   db.EntryDedupKey(entryDate, line.DebitAccount, line.CreditAccount, line.Amount, line.Text),
	}, nil
}

// ToContactRow maps a provider contact onto the internal contact shape.
func ToContactRow(pc Contact) (db.Contact, error) {
	if pc.ID == "" {
		return db.Contact{}, fmt.Errorf("contact without id")
	}
	if pc.Name == "" {
		return db.Contact{}, fmt.Errorf("contact %s without name", pc.ID)
	}

	return db.Contact{
		ProviderID:    pc.ID,
		Name:          pc.Name,
		CompanyNumber: nullString(pc.CompanyNumber),
		TaxNumber:     nullString(pc.TaxNumber),
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(s string) (sql.NullTime, error) {
	if s == "" {
		return sql.NullTime{}, nil
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return sql.NullTime{}, err
	}

	return sql.NullTime{Time: t, Valid: true}, nil
}
