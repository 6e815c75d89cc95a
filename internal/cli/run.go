package cli

import (
	"github.com/spf13/cobra"

	"campaign-alerts/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduled alert evaluation service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

var serveOpts app.ServeOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the alerts and analytics HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context(), serveOpts)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.Addr, "addr", "", "Listen address (defaults to http.addr)")
	serveCmd.Flags().BoolVar(&serveOpts.WithScheduler, "with-scheduler", false, "Also run the scheduled evaluation loop")
}
