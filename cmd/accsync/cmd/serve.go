package cmd

import (
	"github.com/finadex/accsync/pkg/api"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the sync trigger HTTP endpoints",
	Long: `Serve the inbound HTTP endpoints:

  POST /sync           run a full sync
  GET  /cron-sync      run a full sync, gated by the cron bearer secret
  POST /sync-currency  normalize one document's currency
  GET  /stats          sync statistics
  GET  /health         health check

Example:
  accsync serve`,
	Run: runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	app, err := buildApp()
	exitOnError(err, "failed to initialize")
	defer app.Close()

	handlers := api.NewHandlers(app.service, app.normalizer, app.conn, app.cfg.CronSecret)
	server := api.NewServer(app.cfg.HTTP.Addr, handlers)

	exitOnError(server.Run(), "server failed")
}
