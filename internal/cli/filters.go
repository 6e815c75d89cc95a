package cli

import (
	"github.com/spf13/pflag"

	"campaign-alerts/internal/app"
)

// bindFilterFlags registers the shared filter flags on fs.
func bindFilterFlags(fs *pflag.FlagSet, opts *app.FilterOptions) {
	fs.StringVar(&opts.Start, "start", "", "Window start date (YYYY-MM-DD, inclusive)")
	fs.StringVar(&opts.End, "end", "", "Window end date (YYYY-MM-DD, inclusive)")
	fs.IntVar(&opts.Days, "days", 7, "Trailing window in days when --start/--end are omitted")
	fs.StringSliceVar(&opts.Hotels, "hotel", nil, "Hotel names to include")
	fs.StringSliceVar(&opts.Cities, "city", nil, "Cities to include")
	fs.StringSliceVar(&opts.States, "state", nil, "States to include")
	fs.StringSliceVar(&opts.Objectives, "objective", nil, "Campaign objectives to include")
	fs.StringSliceVar(&opts.ResultTypes, "result-type", nil, "Result types to include")
	fs.BoolVar(&opts.YearOverYear, "yoy", false, "Compare against the same window one year earlier")
}
