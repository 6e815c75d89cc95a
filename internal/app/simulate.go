package app

import (
	"context"
	"errors"
	"time"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/calc"
	"campaign-alerts/internal/period"
	"campaign-alerts/internal/service"
	"campaign-alerts/internal/source"
)

// SimulateOptions configure a simulated alert run.
type SimulateOptions struct {
	Client  string
	CSVPath string
}

// SimulateAlert 使用合成的投放数据（或 CSV）跑一次完整的评估并通过告警通道推送。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}
	if len(a.newNotifiers()) == 0 {
		return errors.New("未配置任何告警通道")
	}

	now := time.Now()
	var mem *source.Memory
	if opts.CSVPath != "" {
		loaded, err := a.loadCSV(opts.CSVPath)
		if err != nil {
			return err
		}
		mem = loaded
	} else {
		mem = source.NewMemory(0)
		mem.AddRows(syntheticRows(opts.Client, now)...)
	}

	rt, err := a.build(ctx, buildOptions{rows: mem, notify: true})
	if err != nil {
		return err
	}
	defer rt.close()

	// simulations bypass the shared cooldown
	simOpts := rt.svcOpts
	simOpts.Cooldown = nil
	simOpts.Now = func() time.Time { return now }
	return service.New(simOpts).ProcessTick(ctx, now)
}

// syntheticRows describes one Google campaign that trips low performance,
// ending soon and impression share rules.
func syntheticRows(client string, now time.Time) []ads.Row {
	if client == "" {
		client = "Simulated Hotel"
	}
	end := period.Day(now).AddDate(0, 0, 2)
	rows := make([]ads.Row, 0, 2)
	for offset := 1; offset >= 0; offset-- {
		rows = append(rows, ads.Row{
			Date:               period.Day(now).AddDate(0, 0, -offset),
			AccountID:          "SIM-ACCOUNT",
			AccountName:        client,
			CampaignID:         "SIM-1",
			CampaignName:       "Simulated Search",
			Platform:           ads.GoogleAds,
			Client:             client,
			Spend:              120,
			Impressions:        8000,
			Clicks:             40,
			Conversions:        calc.Float(1),
			ConversionsValue:   calc.Float(90),
			Status:             "ENABLED",
			Objective:          "CONVERSIONS",
			BiddingStrategy:    "MAXIMIZE_CONVERSIONS",
			DailyBudget:        300,
			EndDate:            &end,
			SearchBudgetLostIS: calc.Float(42),
		})
	}
	return rows
}
