package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var currencyDocID int64

// syncCurrencyCmd represents the sync-currency command.
var syncCurrencyCmd = &cobra.Command{
	Use:   "sync-currency",
	Short: "Normalize one document's currency",
	Long: `Recompute a document's base-currency amount and exchange rate,
along with all of its mappings, using the daily rate for its issue date.

Example:
  accsync sync-currency --doc 42`,
	Run: runSyncCurrency,
}

func init() {
	syncCurrencyCmd.Flags().Int64Var(&currencyDocID, "doc", 0, "Document id (required)")
	syncCurrencyCmd.MarkFlagRequired("doc")
}

func runSyncCurrency(cmd *cobra.Command, args []string) {
	if currencyDocID <= 0 {
		exitOnError(fmt.Errorf("--doc must be a positive integer"), "invalid arguments")
	}

	app, err := buildApp()
	exitOnError(err, "failed to initialize")
	defer app.Close()

	err = app.normalizer.SyncDocumentCurrency(currencyDocID)
	exitOnError(err, "currency sync failed")

	fmt.Printf("Document %d normalized\n", currencyDocID)
}
