package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType classifies a document as a sales or purchase invoice.
type DocumentType string

const (
	DocTypeSales    DocumentType = "sales_invoice"
	DocTypePurchase DocumentType = "purchase_invoice"
)

// Document represents a sales or purchase invoice row.
type Document struct {
	ID            int64
	ExternalID    string
	Type          DocumentType
	Number        sql.NullString
	ContactID     sql.NullInt64
	ContactName   sql.NullString
	CompanyNumber sql.NullString
	TaxNumber     sql.NullString
	Amount        decimal.Decimal
	AmountCZK     decimal.NullDecimal
	Currency      string
	ExchangeRate  decimal.NullDecimal
	IssueDate     sql.NullTime
	DueDate       sql.NullTime
	TaxDate       sql.NullTime
	PaidAmount    decimal.Decimal
	ManuallyPaid  bool
	Status        sql.NullString
	RawData       []byte
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Mapping is a partial allocation of a document's amount.
type Mapping struct {
	ID         int64
	DocumentID int64
	CostCenter sql.NullString
	Amount     decimal.Decimal
	AmountCZK  decimal.NullDecimal
}

// DocumentStore manages document and mapping rows.
type DocumentStore struct {
	conn *Connection
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(conn *Connection) *DocumentStore {
	return &DocumentStore{conn: conn}
}

const documentColumns = `
	id, external_id, type, number, contact_id, contact_name, company_number,
	tax_number, amount, amount_czk, currency, exchange_rate, issue_date,
	due_date, tax_date, paid_amount, manually_paid, status, raw_data,
	created_at, updated_at
`

// Upsert inserts or updates a document keyed by (type, external_id).
// It reports whether a new row was created. A manually marked payment is
// never overwritten by provider data.
func (s *DocumentStore) Upsert(doc Document) (bool, error) {
	query := `
		INSERT INTO documents (
			external_id, type, number, contact_name, company_number, tax_number,
			amount, currency, issue_date, due_date, tax_date, paid_amount,
			status, raw_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (type, external_id) DO UPDATE SET
			number = excluded.number,
			contact_name = excluded.contact_name,
			company_number = excluded.company_number,
			tax_number = excluded.tax_number,
			amount = excluded.amount,
			currency = excluded.currency,
			issue_date = excluded.issue_date,
			due_date = excluded.due_date,
			tax_date = excluded.tax_date,
			paid_amount = CASE
				WHEN documents.manually_paid THEN documents.paid_amount
				ELSE excluded.paid_amount
			END,
			status = excluded.status,
			raw_data = excluded.raw_data,
			updated_at = now()
		RETURNING (xmax = 0) AS inserted
	`

	var inserted bool
	err := s.conn.QueryRow(query,
		doc.ExternalID,
		string(doc.Type),
		doc.Number,
		doc.ContactName,
		doc.CompanyNumber,
		doc.TaxNumber,
		doc.Amount,
		doc.Currency,
		doc.IssueDate,
		doc.DueDate,
		doc.TaxDate,
		doc.PaidAmount,
		doc.Status,
		doc.RawData,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert document: %w", err)
	}

	return inserted, nil
}

// GetByID retrieves a document by its internal id.
// Returns nil when the document does not exist.
func (s *DocumentStore) GetByID(id int64) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(s.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// GetByExternalID retrieves a document by its provider id and type.
// Returns nil when the document does not exist.
func (s *DocumentStore) GetByExternalID(docType DocumentType, externalID string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE type = $1 AND external_id = $2`

	doc, err := scanDocument(s.conn.QueryRow(query, string(docType), externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document by external id: %w", err)
	}

	return doc, nil
}

// FindIDByExternalID resolves a provider document id to the internal row
// id. The second return value reports whether the document is stored.
func (s *DocumentStore) FindIDByExternalID(externalID string) (int64, bool, error) {
	var id int64
	err := s.conn.QueryRow(
		`SELECT id FROM documents WHERE external_id = $1 ORDER BY id LIMIT 1`, externalID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve document %s: %w", externalID, err)
	}

	return id, true, nil
}

// ListUnlinked retrieves documents without a contact link.
func (s *DocumentStore) ListUnlinked() ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE contact_id IS NULL ORDER BY id`

	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlinked documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}

	return docs, rows.Err()
}

// ListPendingCurrency retrieves ids of documents whose derived currency
// columns have not been computed yet.
func (s *DocumentStore) ListPendingCurrency() ([]int64, error) {
	query := `
		SELECT id FROM documents
		WHERE amount_czk IS NULL OR exchange_rate IS NULL
		ORDER BY id
	`

	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents pending currency sync: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// SetContact links a document to a contact.
func (s *DocumentStore) SetContact(documentID, contactID int64) error {
	query := `UPDATE documents SET contact_id = $1, updated_at = now() WHERE id = $2`

	if _, err := s.conn.Exec(query, contactID, documentID); err != nil {
		return fmt.Errorf("failed to link document %d to contact %d: %w", documentID, contactID, err)
	}

	return nil
}

// UpdateCurrency writes the derived currency columns of a document and
// recomputes every child mapping with the same rate, atomically.
func (s *DocumentStore) UpdateCurrency(documentID int64, amountCZK, rate decimal.Decimal) error {
	return s.conn.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			UPDATE documents
			SET amount_czk = $1, exchange_rate = $2, updated_at = now()
			WHERE id = $3
		`, amountCZK, rate, documentID)
		if err != nil {
			return fmt.Errorf("failed to update document currency: %w", err)
		}

		// Children always carry the same rate as the parent.
		_, err = tx.Exec(`
			UPDATE document_mappings
			SET amount_czk = round(amount * $1, 2)
			WHERE document_id = $2
		`, rate, documentID)
		if err != nil {
			return fmt.Errorf("failed to update mapping currency: %w", err)
		}

		return nil
	})
}

// ListMappings retrieves the mappings of a document.
func (s *DocumentStore) ListMappings(documentID int64) ([]Mapping, error) {
	query := `
		SELECT id, document_id, cost_center, amount, amount_czk
		FROM document_mappings
		WHERE document_id = $1
		ORDER BY id
	`

	rows, err := s.conn.Query(query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	var mappings []Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.CostCenter, &m.Amount, &m.AmountCZK); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var docType string

	err := row.Scan(
		&doc.ID,
		&doc.ExternalID,
		&docType,
		&doc.Number,
		&doc.ContactID,
		&doc.ContactName,
		&doc.CompanyNumber,
		&doc.TaxNumber,
		&doc.Amount,
		&doc.AmountCZK,
		&doc.Currency,
		&doc.ExchangeRate,
		&doc.IssueDate,
		&doc.DueDate,
		&doc.TaxDate,
		&doc.PaidAmount,
		&doc.ManuallyPaid,
		&doc.Status,
		&doc.RawData,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Type = DocumentType(docType)
	return &doc, nil
}
