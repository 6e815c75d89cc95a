package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"campaign-alerts/internal/app"
)

var (
	historyLimit int
	resolveUndo  bool
)

var historyCmd = &cobra.Command{
	Use:         "history",
	Short:       "Display recently recorded alerts",
	Annotations: reportAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.HistoryOptions{
			Limit: historyLimit,
		}

		return getApp().History(cmd.Context(), opts)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <alert-id>...",
	Short: "Mark alerts resolved so evaluations hide them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Resolve(cmd.Context(), args, resolveUndo)
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of alerts to display")
	resolveCmd.Flags().BoolVar(&resolveUndo, "reopen", false, "Clear the resolved mark instead")
}
