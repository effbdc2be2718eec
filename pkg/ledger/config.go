// Package ledger computes account balances and report placement over
// synced journal entries. It only reads persisted rows; it never calls
// the provider.
package ledger

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReportConfig configures ledger reports: which account prefixes feed the
// VAT summary and which memo patterns are excluded from totals (internal
// closing and settlement entries).
type ReportConfig struct {
	VAT struct {
		// AccountPrefix selects the VAT clearing accounts, e.g. "343".
		AccountPrefix string `yaml:"account_prefix"`
		// InputPrefix and OutputPrefix select input/output VAT analytics.
		InputPrefix  string `yaml:"input_prefix"`
		OutputPrefix string `yaml:"output_prefix"`
	} `yaml:"vat"`

	// ExcludeMemos lists SQL LIKE patterns; matching entries are left out
	// of all report sums.
	ExcludeMemos []string `yaml:"exclude_memos"`
}

// DefaultReportConfig returns the configuration used when no report file
// is present.
func DefaultReportConfig() ReportConfig {
	var cfg ReportConfig
	cfg.VAT.AccountPrefix = "343"
	cfg.VAT.InputPrefix = "343001"
	cfg.VAT.OutputPrefix = "343003"
	return cfg
}

// LoadReportConfig reads a report configuration from a YAML file. A missing
// file yields the default configuration.
func LoadReportConfig(configPath string) (ReportConfig, error) {
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return DefaultReportConfig(), nil
	}
	if err != nil {
		return ReportConfig{}, fmt.Errorf("failed to read report config: %w", err)
	}

	cfg := DefaultReportConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ReportConfig{}, fmt.Errorf("failed to parse report config: %w", err)
	}

	return cfg, nil
}
