package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"campaign-alerts/internal/aggregate"
	"campaign-alerts/internal/period"
)

// Export renders the daily series of the filtered window as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)
	filters := opts.Filters.Filters(time.Now())
	if _, ok := filters.Range(); !ok {
		return errors.New("a valid --start/--end or --days window is required")
	}

	rt, err := a.build(ctx, buildOptions{})
	if err != nil {
		return err
	}
	defer rt.close()

	bundle, err := rt.svc.Analytics(ctx, filters)
	if err != nil {
		return err
	}
	days := bundle.TemporalData
	if len(days) == 0 {
		a.Logger.Info().Msg("no metric rows found for export window")
		return nil
	}

	downsampled := downsampleDays(days, opts.MaxPoints)
	a.Logger.Info().Int("total", len(days)).Int("exported", len(downsampled)).Msg("exporting daily series")

	if opts.CSVPath != "" {
		if err := writeDaysCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeDaysPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleDays(days []aggregate.GroupRollup, max int) []aggregate.GroupRollup {
	if max <= 0 || len(days) <= max {
		return days
	}
	if max == 1 {
		return days[len(days)-1:]
	}

	result := make([]aggregate.GroupRollup, 0, max)
	step := float64(len(days)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(days) {
			idx = len(days) - 1
		}
		result = append(result, days[idx])
	}
	return result
}

func writeDaysCSV(path string, days []aggregate.GroupRollup) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "spend", "revenue", "conversions", "clicks", "impressions", "roas", "cpa", "cpc", "ctr", "campaigns"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, d := range days {
		record := []string{
			d.Key,
			money(d.Spend),
			money(d.Revenue),
			money(d.Conversions),
			strconv.FormatInt(d.Clicks, 10),
			strconv.FormatInt(d.Impressions, 10),
			money(d.ROAS),
			money(d.CPA),
			money(d.CPC),
			money(d.CTR),
			strconv.Itoa(d.Campaigns),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeDaysPNG(path string, days []aggregate.GroupRollup) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(days))
	spend := make([]float64, 0, len(days))
	revenue := make([]float64, 0, len(days))
	roas := make([]float64, 0, len(days))

	for _, d := range days {
		day, err := time.Parse(period.Layout, d.Key)
		if err != nil {
			continue
		}
		x = append(x, day)
		spend = append(spend, d.Spend)
		revenue = append(revenue, d.Revenue)
		roas = append(roas, d.ROAS)
	}
	if len(x) < 2 {
		return errors.New("at least two days are required to render a chart")
	}

	moneyFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	ratioFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Spend / Revenue",
			ValueFormatter: moneyFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "ROAS",
			ValueFormatter: ratioFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Spend",
				XValues: x,
				YValues: spend,
			},
			chart.TimeSeries{
				Name:    "Revenue",
				XValues: x,
				YValues: revenue,
			},
			chart.TimeSeries{
				Name:    "ROAS",
				XValues: x,
				YValues: roas,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func money(v float64) string {
	return formatDecimal(decimal.NewFromFloat(v), 2)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
