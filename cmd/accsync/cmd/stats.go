package cmd

import (
	"fmt"

	"github.com/finadex/accsync/pkg/db"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display sync statistics",
	Long: `Display statistics about synced documents, journal entries and
contacts, plus the current sync watermarks.

Example:
  accsync stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	app, err := buildApp()
	exitOnError(err, "failed to initialize")
	defer app.Close()

	stats, err := db.GetStats(app.conn)
	exitOnError(err, "failed to get statistics")

	fmt.Println("\n=== Sync Statistics ===")
	fmt.Printf("Documents:        %d (%d linked)\n", stats.TotalDocuments, stats.LinkedDocuments)
	fmt.Printf("Journal entries:  %d\n", stats.TotalJournalLines)
	fmt.Printf("Contacts:         %d\n", stats.TotalContacts)

	if stats.LastJournalCursor.Valid {
		fmt.Printf("Journal cursor:   %s\n", stats.LastJournalCursor.Time.Format("2006-01-02"))
	} else {
		fmt.Printf("Journal cursor:   (never)\n")
	}

	fmt.Println()
}
