package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	reportYear    int
	reportQuarter int
)

// reportCmd represents the report command group.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Ledger reports over synced journal entries",
}

// reportVATCmd represents the report vat command.
var reportVATCmd = &cobra.Command{
	Use:   "vat",
	Short: "VAT summary for a quarter",
	Long: `Compute the VAT position of a quarter from synced journal entries:
input and output VAT plus the netted clearing account and its report
placement (liabilities when owed, assets when receivable).

Example:
  accsync report vat --year 2026 --quarter 2`,
	Run: runReportVAT,
}

func init() {
	now := time.Now()
	reportVATCmd.Flags().IntVar(&reportYear, "year", now.Year(), "Fiscal year")
	reportVATCmd.Flags().IntVar(&reportQuarter, "quarter", (int(now.Month())-1)/3+1, "Quarter (1-4)")

	reportCmd.AddCommand(reportVATCmd)
}

func runReportVAT(cmd *cobra.Command, args []string) {
	if reportQuarter < 1 || reportQuarter > 4 {
		exitOnError(fmt.Errorf("--quarter must be between 1 and 4"), "invalid arguments")
	}

	app, err := buildApp()
	exitOnError(err, "failed to initialize")
	defer app.Close()

	from := time.Date(reportYear, time.Month((reportQuarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 3, -1)

	summary, err := app.aggregator.VATSummary(from, to)
	exitOnError(err, "failed to compute VAT summary")

	fmt.Printf("\n=== VAT Summary %d Q%d ===\n", reportYear, reportQuarter)
	fmt.Printf("Period:      %s - %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("Input VAT:   %s\n", summary.InputVAT.StringFixed(2))
	fmt.Printf("Output VAT:  %s\n", summary.OutputVAT.StringFixed(2))
	fmt.Printf("Net:         %s\n", summary.Net.StringFixed(2))
	fmt.Printf("Liabilities: %s\n", summary.Placement.Liabilities.StringFixed(2))
	fmt.Printf("Assets:      %s\n", summary.Placement.Assets.StringFixed(2))
	fmt.Println()
}
