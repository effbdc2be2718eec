package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Contact represents a counterparty mirrored from the accounting provider.
type Contact struct {
	ID            int64
	ProviderID    string
	Name          string
	CompanyNumber sql.NullString
	TaxNumber     sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ContactStore manages contact rows.
type ContactStore struct {
	conn *Connection
}

// NewContactStore creates a new ContactStore.
func NewContactStore(conn *Connection) *ContactStore {
	return &ContactStore{conn: conn}
}

// Upsert inserts or updates a contact keyed by its provider id.
func (s *ContactStore) Upsert(contact Contact) error {
	query := `
		INSERT INTO contacts (provider_id, name, company_number, tax_number)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_id) DO UPDATE SET
			name = excluded.name,
			company_number = excluded.company_number,
			tax_number = excluded.tax_number,
			updated_at = now()
	`

	_, err := s.conn.Exec(query,
		contact.ProviderID,
		contact.Name,
		contact.CompanyNumber,
		contact.TaxNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}

	return nil
}

// ListAll retrieves all contacts ordered by id. The ordering matters:
// name-based document linking picks the first match, so ties on a shared
// name always resolve to the lowest id.
func (s *ContactStore) ListAll() ([]Contact, error) {
	query := `
		SELECT id, provider_id, name, company_number, tax_number, created_at, updated_at
		FROM contacts
		ORDER BY id
	`

	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(
			&c.ID,
			&c.ProviderID,
			&c.Name,
			&c.CompanyNumber,
			&c.TaxNumber,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}
