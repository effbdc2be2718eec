// Package db provides Postgres storage for documents, journal entries,
// contacts, mappings and sync cursors.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Counterparties mirrored from the accounting provider
CREATE TABLE IF NOT EXISTS contacts (
    id BIGSERIAL PRIMARY KEY,
    provider_id TEXT NOT NULL,
    name TEXT NOT NULL,
    company_number TEXT,
    tax_number TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(provider_id)
);

CREATE INDEX IF NOT EXISTS idx_contacts_company_number
    ON contacts(company_number);

-- Sales and purchase invoices synced from the accounting provider
CREATE TABLE IF NOT EXISTS documents (
    id BIGSERIAL PRIMARY KEY,
    external_id TEXT NOT NULL,            -- id assigned by the provider
    type TEXT NOT NULL,                   -- 'sales_invoice' or 'purchase_invoice'
    number TEXT,
    contact_id BIGINT REFERENCES contacts(id),
    contact_name TEXT,
    company_number TEXT,
    tax_number TEXT,
    amount NUMERIC(14,2) NOT NULL,        -- in original currency
    amount_czk NUMERIC(14,2),             -- in base currency, derived
    currency TEXT NOT NULL,
    exchange_rate NUMERIC(12,6),
    issue_date DATE,
    due_date DATE,
    tax_date DATE,
    paid_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
    manually_paid BOOLEAN NOT NULL DEFAULT FALSE,
    status TEXT,
    raw_data JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(type, external_id)
);

CREATE INDEX IF NOT EXISTS idx_documents_contact
    ON documents(contact_id);

CREATE INDEX IF NOT EXISTS idx_documents_issue_date
    ON documents(issue_date);

-- Partial allocations of a document's amount (cost centers etc.)
CREATE TABLE IF NOT EXISTS document_mappings (
    id BIGSERIAL PRIMARY KEY,
    document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    cost_center TEXT,
    amount NUMERIC(14,2) NOT NULL,
    amount_czk NUMERIC(14,2)
);

CREATE INDEX IF NOT EXISTS idx_document_mappings_document
    ON document_mappings(document_id);

-- Double-entry ledger lines, append-only
CREATE TABLE IF NOT EXISTS journal_entries (
    id BIGSERIAL PRIMARY KEY,
    entry_date DATE NOT NULL,
    account_md TEXT NOT NULL,             -- debit side
    account_d TEXT NOT NULL,              -- credit side
    amount NUMERIC(14,2) NOT NULL,
    memo TEXT NOT NULL DEFAULT '',
    document_id BIGINT REFERENCES documents(id),
    fiscal_year INT NOT NULL,
    dedup_key TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(dedup_key)
);

CREATE INDEX IF NOT EXISTS idx_journal_entries_date
    ON journal_entries(entry_date);

CREATE INDEX IF NOT EXISTS idx_journal_entries_account_md
    ON journal_entries(account_md text_pattern_ops);

CREATE INDEX IF NOT EXISTS idx_journal_entries_account_d
    ON journal_entries(account_d text_pattern_ops);

-- Per sync type watermark for incremental resumption
CREATE TABLE IF NOT EXISTS sync_cursors (
    sync_type TEXT PRIMARY KEY,
    last_date DATE NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
