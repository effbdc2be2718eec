package cmd

import (
	"path/filepath"
	"time"

	"github.com/finadex/accsync/pkg/config"
	"github.com/finadex/accsync/pkg/db"
	"github.com/finadex/accsync/pkg/ledger"
	"github.com/finadex/accsync/pkg/provider"
	"github.com/finadex/accsync/pkg/rates"
	"github.com/finadex/accsync/pkg/sync"
)

// app bundles the wired components shared by the subcommands.
type app struct {
	cfg        *config.Config
	conn       *db.Connection
	service    *sync.Service
	normalizer *sync.Normalizer
	aggregator *ledger.Aggregator
}

// buildApp loads and validates configuration, opens the database and wires
// all engines. Configuration errors abort before any network call.
func buildApp() (*app, error) {
	cfg, err := config.Load(getConfigFile())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := db.Open(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	client := provider.NewClient(provider.Config{
		Code:      cfg.Provider.Code,
		BaseURL:   cfg.Provider.BaseURL,
		Email:     cfg.Provider.Email,
		APIKey:    cfg.Provider.APIKey,
		CompanyID: cfg.Provider.CompanyID,
		PageSize:  cfg.Provider.PageSize,
		Timeout:   30 * time.Second,
	})

	resolver := rates.NewResolver(
		rates.NewHTTPSource(cfg.Rates.BaseURL, 30*time.Second),
		cfg.BaseCurrency,
	)

	documentStore := db.NewDocumentStore(conn)
	journalStore := db.NewJournalStore(conn)
	contactStore := db.NewContactStore(conn)
	cursorStore := db.NewCursorStore(conn)

	journalEngine := sync.NewJournalEngine(client, journalStore, cursorStore, documentStore)
	documentEngine := sync.NewDocumentEngine(client, documentStore, contactStore, cursorStore)
	normalizer := sync.NewNormalizer(documentStore, resolver)
	service := sync.NewService(journalEngine, documentEngine, normalizer)

	reportCfg, err := ledger.LoadReportConfig(filepath.Join("config", "report.yaml"))
	if err != nil {
		conn.Close()
		return nil, err
	}
	aggregator := ledger.NewAggregator(journalStore, reportCfg)

	return &app{
		cfg:        cfg,
		conn:       conn,
		service:    service,
		normalizer: normalizer,
		aggregator: aggregator,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	if a.conn != nil {
		a.conn.Close()
	}
}
