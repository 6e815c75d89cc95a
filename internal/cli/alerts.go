package cli

import (
	"github.com/spf13/cobra"

	"campaign-alerts/internal/app"
)

var (
	alertsOpts    app.AlertsOptions
	analyticsOpts app.AlertsOptions
	evaluateOpts  app.AlertsOptions
)

var alertsCmd = &cobra.Command{
	Use:         "alerts",
	Short:       "Evaluate alert rules once against the metric database",
	Annotations: reportAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Alerts(cmd.Context(), alertsOpts)
	},
}

var analyticsCmd = &cobra.Command{
	Use:         "analytics",
	Short:       "Print the analytics bundle as JSON",
	Annotations: reportAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Analytics(cmd.Context(), analyticsOpts)
	},
}

var evaluateCmd = &cobra.Command{
	Use:         "evaluate",
	Short:       "Evaluate alert rules offline against a CSV export",
	Annotations: reportAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Evaluate(cmd.Context(), evaluateOpts)
	},
}

func init() {
	bindFilterFlags(alertsCmd.Flags(), &alertsOpts.Filters)
	alertsCmd.Flags().BoolVar(&alertsOpts.JSON, "json", false, "Print JSON instead of a table")

	bindFilterFlags(analyticsCmd.Flags(), &analyticsOpts.Filters)
	analyticsCmd.Flags().StringVar(&analyticsOpts.CSVPath, "csv", "", "Read metric rows from a CSV export instead of the database")

	bindFilterFlags(evaluateCmd.Flags(), &evaluateOpts.Filters)
	evaluateCmd.Flags().StringVar(&evaluateOpts.CSVPath, "csv", "", "CSV export of metric rows")
	evaluateCmd.Flags().BoolVar(&evaluateOpts.JSON, "json", false, "Print JSON instead of a table")
	_ = evaluateCmd.MarkFlagRequired("csv")
}
