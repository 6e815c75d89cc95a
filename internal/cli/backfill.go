package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"campaign-alerts/internal/app"
	"campaign-alerts/internal/period"
)

var (
	backfillFrom    string
	backfillTo      string
	backfillHour    int
	backfillDryRun  bool
	backfillWorkers int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Replay alert evaluation for past days into the alert history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillFrom == "" || backfillTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := time.Parse(period.Layout, backfillFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}

		to, err := time.Parse(period.Layout, backfillTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		if to.Before(from) {
			return fmt.Errorf("--from must not be after --to")
		}

		opts := app.BackfillOptions{
			From:       from,
			To:         to,
			ReplayHour: backfillHour,
			DryRun:     backfillDryRun,
			Workers:    backfillWorkers,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "First day to replay (YYYY-MM-DD)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "Last day to replay (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().IntVar(&backfillHour, "hour", 12, "Hour of day the replayed evaluation pretends to run at")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Run without writing to storage")
	backfillCmd.Flags().IntVar(&backfillWorkers, "workers", 2, "Number of concurrent workers")
}
