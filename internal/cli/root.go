package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"campaign-alerts/internal/app"
	"campaign-alerts/internal/config"
	"campaign-alerts/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	dsn       string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:   "campaignwatch",
	Short: "Evaluate ad campaign alerts and analytics for hotel accounts",
	Long: `campaignwatch aggregates Google Ads and Meta Ads metric rows per campaign,
compares them with the previous or year-ago window and raises alerts for
under-performing, over-pacing or idle campaigns and low account balances.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if logFormat != "" {
			cfg.Logging.Format = logFormat
		}
		if dsn != "" {
			cfg.Database.DSN = dsn
		}
		if cmd.Annotations[annotationReport] == "true" && cfg.Logging.Output == "" {
			cfg.Logging.Output = "stderr"
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		appHandle.Out = cmd.OutOrStdout()
		return nil
	},
}

// annotationReport marks commands whose stdout is a report.
const annotationReport = "report"

var reportAnnotations = map[string]string{annotationReport: "true"}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override log format (json or console)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Override database.dsn")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(simulateCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}
