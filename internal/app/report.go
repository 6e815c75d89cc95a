package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/alerting"
	"campaign-alerts/internal/period"
	"campaign-alerts/internal/source"
)

// FilterOptions is the command line form of the filter state.
type FilterOptions struct {
	Start        string
	End          string
	Days         int
	Hotels       []string
	Cities       []string
	States       []string
	Objectives   []string
	ResultTypes  []string
	YearOverYear bool
}

// Filters converts the options. Without explicit dates the trailing Days
// window ending at now is used.
func (o FilterOptions) Filters(now time.Time) ads.Filters {
	f := ads.Filters{
		Hotels:         o.Hotels,
		StartDate:      o.Start,
		EndDate:        o.End,
		Cities:         o.Cities,
		States:         o.States,
		CompareYearAgo: o.YearOverYear,
		Objectives:     o.Objectives,
		ResultTypes:    o.ResultTypes,
	}
	if f.StartDate == "" && f.EndDate == "" && o.Days > 0 {
		r := period.Trailing(now, o.Days)
		f.StartDate = r.Start.Format(period.Layout)
		f.EndDate = r.End.Format(period.Layout)
	}
	return f
}

// AlertsOptions configure the alerts and evaluate commands.
type AlertsOptions struct {
	Filters FilterOptions
	CSVPath string
	JSON    bool
}

// Alerts evaluates the rules once against the database and prints the result.
func (a *App) Alerts(ctx context.Context, opts AlertsOptions) error {
	rt, err := a.build(ctx, buildOptions{})
	if err != nil {
		return err
	}
	defer rt.close()

	alerts, err := rt.svc.GenerateAlerts(ctx, opts.Filters.Filters(time.Now()))
	if err != nil {
		return err
	}
	return a.printAlerts(alerts, opts.JSON)
}

// Evaluate runs the rules offline against rows exported to CSV.
func (a *App) Evaluate(ctx context.Context, opts AlertsOptions) error {
	if opts.CSVPath == "" {
		return errors.New("--csv is required")
	}
	mem, err := a.loadCSV(opts.CSVPath)
	if err != nil {
		return err
	}

	rt, err := a.build(ctx, buildOptions{rows: mem})
	if err != nil {
		return err
	}
	defer rt.close()

	alerts, err := rt.svc.GenerateAlerts(ctx, opts.Filters.Filters(time.Now()))
	if err != nil {
		return err
	}
	return a.printAlerts(alerts, opts.JSON)
}

// Analytics prints the analytics bundle as JSON.
func (a *App) Analytics(ctx context.Context, opts AlertsOptions) error {
	build := buildOptions{}
	if opts.CSVPath != "" {
		mem, err := a.loadCSV(opts.CSVPath)
		if err != nil {
			return err
		}
		build.rows = mem
	}

	rt, err := a.build(ctx, build)
	if err != nil {
		return err
	}
	defer rt.close()

	bundle, err := rt.svc.Analytics(ctx, opts.Filters.Filters(time.Now()))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(bundle)
}

func (a *App) loadCSV(path string) (*source.Memory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	rows, err := source.ReadCSV(file)
	if err != nil {
		return nil, err
	}
	mem := source.NewMemory(a.Config.Source.MaxRows)
	mem.AddRows(rows...)
	a.Logger.Info().Str("path", path).Int("rows", len(rows)).Msg("loaded metric rows from csv")
	return mem, nil
}

func (a *App) printAlerts(alerts []alerting.Alert, asJSON bool) error {
	alerting.SortBySeverity(alerts)
	if asJSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"alerts": alerts, "summary": alerting.Summarize(alerts)})
	}

	if len(alerts) == 0 {
		fmt.Fprintln(a.Out, "no alerts")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Severity\tType\tClient\tCampaign\tPlatform\tMessage")
	for _, al := range alerts {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			strings.ToUpper(string(al.Severity)),
			al.Type,
			al.Client,
			al.CampaignName,
			al.Platform.Short(),
			sanitizeInline(al.Message),
		)
	}
	writer.Flush()

	s := alerting.Summarize(alerts)
	fmt.Fprintf(a.Out, "\n%d alerts: %d critical, %d warning, %d info\n", s.Total,
		s.BySeverity[alerting.SeverityCritical], s.BySeverity[alerting.SeverityWarning], s.BySeverity[alerting.SeverityInfo])
	return nil
}

// History prints recently persisted alert records.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	rt, err := a.build(ctx, buildOptions{})
	if err != nil {
		return err
	}
	defer rt.close()

	records, err := rt.svc.History(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.Out, "no alerts recorded")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tRun\tSeverity\tAlert\tNotified\tSpend\tMessage")
	for _, rec := range records {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			rec.CreatedAt.UTC().Format(time.RFC3339),
			shortRunID(rec.RunID),
			rec.Severity,
			rec.AlertID,
			rec.Notified,
			metricValue(rec.Metrics, "spend"),
			sanitizeInline(rec.Message),
		)
	}
	writer.Flush()
	return nil
}

// Resolve marks alert ids resolved, or reopens them.
func (a *App) Resolve(ctx context.Context, ids []string, reopen bool) error {
	if len(ids) == 0 {
		return errors.New("at least one alert id is required")
	}
	rt, err := a.build(ctx, buildOptions{rows: source.NewMemory(0)})
	if err != nil {
		return err
	}
	defer rt.close()

	if !a.Config.Redis.Enabled {
		a.Logger.Warn().Msg("redis disabled; resolved state only lives for this process")
	}
	if reopen {
		err = rt.svc.Reopen(ctx, ids...)
	} else {
		err = rt.svc.Resolve(ctx, ids...)
	}
	if err != nil {
		return err
	}
	a.Logger.Info().Strs("ids", ids).Bool("reopen", reopen).Msg("resolved alert state updated")
	return nil
}

func metricValue(raw json.RawMessage, key string) string {
	var values map[string]float64
	if len(raw) == 0 || json.Unmarshal(raw, &values) != nil {
		return "-"
	}
	v, ok := values[key]
	if !ok {
		return "-"
	}
	return formatDecimal(decimal.NewFromFloat(v), 2)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
