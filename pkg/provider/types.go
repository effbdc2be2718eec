// Package provider implements the accounting provider API client.
// Wire shapes are provider specific and stay inside this package; the
// adapter maps them onto the internal store types so a provider swap only
// touches this package.
package provider

import (
	"github.com/shopspring/decimal"
)

// Document is the provider's wire shape of an invoice.
type Document struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	ClientName    string          `json:"client_name"`
	CompanyNumber string          `json:"company_number"`
	TaxNumber     string          `json:"tax_number"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	IssueDate     string          `json:"issue_date"` // YYYY-MM-DD
	DueDate       string          `json:"due_date,omitempty"`
	TaxDate       string          `json:"tax_date,omitempty"`
	Status        string          `json:"status,omitempty"`

	// Raw holds the undecoded payload of this item as received.
	Raw []byte `json:"-"`
}

// JournalLine is the provider's wire shape of one ledger line.
type JournalLine struct {
	Date          string          `json:"date"` // YYYY-MM-DD
	DebitAccount  string          `json:"debit_account"`
	CreditAccount string          `json:"credit_account"`
	Amount        decimal.Decimal `json:"amount"`
	Text          string          `json:"text,omitempty"`
	DocumentID    string          `json:"document_id,omitempty"`
}

// Contact is the provider's wire shape of a counterparty.
type Contact struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CompanyNumber string `json:"company_number,omitempty"`
	TaxNumber     string `json:"tax_number,omitempty"`
}

// PaymentStatus is the provider's wire shape of a receivable or payable:
// how much of a referenced document has been paid.
type PaymentStatus struct {
	DocumentID string          `json:"document_id"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
}

// TokenResponse represents the provider's token endpoint response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ErrorResponse represents an error payload from the provider API.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
