package ledger

import (
	"fmt"
	"time"

	"github.com/finadex/accsync/pkg/db"
	"github.com/shopspring/decimal"
)

// JournalReader is the slice of the journal store the aggregator reads.
type JournalReader interface {
	SumAmount(side db.AccountSide, prefix string, from, to time.Time, excludeMemos []string) (decimal.Decimal, error)
}

// Aggregator computes account nets over a period. All methods are
// deterministic for a fixed dataset and date range.
type Aggregator struct {
	journal JournalReader
	cfg     ReportConfig
}

// NewAggregator creates a new Aggregator.
func NewAggregator(journal JournalReader, cfg ReportConfig) *Aggregator {
	return &Aggregator{
		journal: journal,
		cfg:     cfg,
	}
}

// AccountNet computes credit minus debit sums for an account code prefix
// over a date range, excluding entries whose memo matches a configured
// exclusion pattern.
func (a *Aggregator) AccountNet(prefix string, from, to time.Time) (decimal.Decimal, error) {
	credit, err := a.journal.SumAmount(db.SideCredit, prefix, from, to, a.cfg.ExcludeMemos)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute account net for %s: %w", prefix, err)
	}

	debit, err := a.journal.SumAmount(db.SideDebit, prefix, from, to, a.cfg.ExcludeMemos)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute account net for %s: %w", prefix, err)
	}

	return credit.Sub(debit), nil
}

// Placement is the report-side placement of an account net.
type Placement struct {
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
}

// PlaceNet applies the reporting placement convention: a positive net of a
// liability-class account is owed and shown under liabilities; a negative
// net moves to the assets side with its magnitude; zero places nothing.
func PlaceNet(net decimal.Decimal) Placement {
	var p Placement
	switch net.Sign() {
	case 1:
		p.Liabilities = net
	case -1:
		p.Assets = net.Neg()
	}
	return p
}

// VATSummary is the VAT position of a period.
type VATSummary struct {
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	InputVAT  decimal.Decimal `json:"input_vat"`
	OutputVAT decimal.Decimal `json:"output_vat"`
	Net       decimal.Decimal `json:"net"`
	Placement Placement       `json:"placement"`
}

// VATSummary computes the VAT position over a period: input and output
// analytics plus the netted clearing account with its report placement.
func (a *Aggregator) VATSummary(from, to time.Time) (VATSummary, error) {
	summary := VATSummary{From: from, To: to}

	input, err := a.AccountNet(a.cfg.VAT.InputPrefix, from, to)
	if err != nil {
		return summary, err
	}
	// Input VAT accumulates on the debit side.
	summary.InputVAT = input.Neg()

	output, err := a.AccountNet(a.cfg.VAT.OutputPrefix, from, to)
	if err != nil {
		return summary, err
	}
	summary.OutputVAT = output

	net, err := a.AccountNet(a.cfg.VAT.AccountPrefix, from, to)
	if err != nil {
		return summary, err
	}
	summary.Net = net
	summary.Placement = PlaceNet(net)

	return summary, nil
}
