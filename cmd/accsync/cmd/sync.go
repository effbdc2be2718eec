package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

var deadlineSeconds int

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full sync against the accounting provider",
	Long: `Run a full sync against the accounting provider.

This command:
1. Pulls journal entries from the last watermark and appends new ones
2. Mirrors contacts
3. Upserts sales and purchase documents with payment status
4. Links documents to contacts
5. Normalizes multi-currency amounts to the base currency

A deadline makes the journal step stop cooperatively and report a partial
run; re-running continues where deduplication leaves off.

Example:
  accsync sync
  accsync sync --deadline-seconds 50`,
	Run: runSync,
}

func init() {
	syncCmd.Flags().IntVar(&deadlineSeconds, "deadline-seconds", 0, "Stop after this many seconds and report a partial run (0 = unbounded)")
}

func runSync(cmd *cobra.Command, args []string) {
	app, err := buildApp()
	exitOnError(err, "failed to initialize")
	defer app.Close()

	var deadline time.Time
	if deadlineSeconds > 0 {
		deadline = time.Now().Add(time.Duration(deadlineSeconds) * time.Second)
	}

	stats, err := app.service.SyncAll(deadline)
	if err != nil {
		slog.Error("sync failed", "run_id", stats.RunID, "error", err)
		exitOnError(err, "sync failed")
	}

	fmt.Println("\n=== Sync Run ===")
	fmt.Printf("Run ID:             %s\n", stats.RunID)
	fmt.Printf("State:              %s\n", stats.State)
	fmt.Printf("Journal inserted:   %d (skipped %d)\n", stats.Journal.Inserted, stats.Journal.Skipped)
	fmt.Printf("Sales documents:    %d created, %d updated\n", stats.SalesDocuments.Created, stats.SalesDocuments.Updated)
	fmt.Printf("Purchase documents: %d created, %d updated\n", stats.PurchaseDocuments.Created, stats.PurchaseDocuments.Updated)
	fmt.Printf("Contacts synced:    %d\n", stats.ContactsSynced)
	fmt.Printf("Documents linked:   %d\n", stats.DocumentsLinked)
	fmt.Printf("Currency normalized:%d\n", stats.CurrencyNormalized)
	fmt.Println()
}
