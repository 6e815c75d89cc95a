package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/aggregate"
	"campaign-alerts/internal/alerting"
	"campaign-alerts/internal/period"
	"campaign-alerts/internal/storage"
)

// Evaluation is the outcome of one alert generation run.
type Evaluation struct {
	RunID   string
	Window  period.Range
	Now     time.Time
	Alerts  []alerting.Alert
	Configs map[string]alerting.HotelConfig
}

// GenerateAlerts evaluates the alert rules for the filters. Resolved alerts
// are filtered out.
func (s *Service) GenerateAlerts(ctx context.Context, f ads.Filters) ([]alerting.Alert, error) {
	ev, err := s.evaluate(ctx, newRunID(), f)
	if err != nil {
		return nil, err
	}
	return ev.Alerts, nil
}

// Evaluate is GenerateAlerts returning the run metadata as well.
func (s *Service) Evaluate(ctx context.Context, f ads.Filters) (Evaluation, error) {
	return s.evaluate(ctx, newRunID(), f)
}

func (s *Service) evaluate(ctx context.Context, runID string, f ads.Filters) (Evaluation, error) {
	logger := s.runLogger(runID)
	now := s.now()
	ev := Evaluation{RunID: runID, Now: now, Alerts: []alerting.Alert{}}

	snap, ok, err := s.load(ctx, f, logger)
	if err != nil {
		s.metrics.ObserveEvaluation("alerts", "cancelled")
		return Evaluation{}, err
	}
	ev.Window = snap.window
	if !ok {
		s.metrics.ObserveEvaluation("alerts", "empty")
		return ev, nil
	}

	campaigns := s.aggregator.Campaigns(snap.current)
	in := alerting.Input{
		Campaigns: campaigns,
		Accounts:  aggregate.Accounts(campaigns),
		Configs:   s.loadConfigs(ctx, logger),
		Now:       now,
	}
	if snap.hasPrevious {
		in.Previous = aggregate.Index(s.aggregator.Campaigns(snap.previous))
	}
	ev.Configs = in.Configs

	alerts := alerting.Dedupe(s.engine.Evaluate(in))
	alerts = s.dropResolved(ctx, alerts, logger)
	ev.Alerts = alerts

	for _, a := range alerts {
		s.metrics.ObserveAlert(string(a.Type), string(a.Severity))
	}
	s.metrics.ObserveEvaluation("alerts", "ok")
	s.metrics.SetCampaigns(len(campaigns))

	summary := alerting.Summarize(alerts)
	logger.Info().
		Str("window", snap.window.String()).
		Int("campaigns", len(campaigns)).
		Int("alerts", summary.Total).
		Int("critical", summary.BySeverity[alerting.SeverityCritical]).
		Int("warning", summary.BySeverity[alerting.SeverityWarning]).
		Int("info", summary.BySeverity[alerting.SeverityInfo]).
		Msg("alerts evaluated")
	return ev, nil
}

func (s *Service) loadConfigs(ctx context.Context, logger zerolog.Logger) map[string]alerting.HotelConfig {
	if s.configs == nil {
		return nil
	}
	configs, err := s.configs.AlertConfigs(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("load alert configs failed; using default thresholds")
		return nil
	}
	return configs
}

func (s *Service) dropResolved(ctx context.Context, alerts []alerting.Alert, logger zerolog.Logger) []alerting.Alert {
	if s.resolved == nil {
		return alerts
	}
	resolved, err := s.resolved.Resolved(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("load resolved alerts failed; keeping all alerts")
		return alerts
	}
	return alerting.FilterResolved(alerts, resolved)
}

// Resolve marks alert ids as resolved so later evaluations hide them.
func (s *Service) Resolve(ctx context.Context, ids ...string) error {
	if s.resolved == nil {
		return fmt.Errorf("resolved alert store not configured")
	}
	return s.resolved.Resolve(ctx, ids...)
}

// Reopen clears the resolved mark of alert ids.
func (s *Service) Reopen(ctx context.Context, ids ...string) error {
	if s.resolved == nil {
		return fmt.Errorf("resolved alert store not configured")
	}
	return s.resolved.Reopen(ctx, ids...)
}

// History lists the most recent persisted alert records.
func (s *Service) History(ctx context.Context, limit int) ([]storage.AlertRecord, error) {
	if s.alertStore == nil {
		return nil, storage.ErrNotConfigured
	}
	return s.alertStore.ListRecentAlerts(ctx, limit)
}

// Run begins the aligned evaluation loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick evaluates the trailing lookback window ending at bucket,
// persists the alerts and notifies the ones outside their cooldown.
func (s *Service) ProcessTick(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	window := period.Trailing(bucket, s.lookbackDays)
	filters := ads.Filters{
		StartDate: window.Start.Format(period.Layout),
		EndDate:   window.End.Format(period.Layout),
	}

	ev, err := s.evaluate(ctx, newRunID(), filters)
	if err != nil {
		return fmt.Errorf("evaluate alerts: %w", err)
	}
	alerting.SortBySeverity(ev.Alerts)

	logger := s.runLogger(ev.RunID)
	pending := s.dueForNotification(ctx, ev.Alerts, logger)
	s.persist(ctx, ev, pending, logger)
	s.notify(ctx, ev, pending, logger)
	s.prune(ctx, bucket, logger)
	return nil
}

func (s *Service) prune(ctx context.Context, bucket time.Time, logger zerolog.Logger) {
	if s.alertStore == nil || s.retention <= 0 {
		return
	}
	cutoff := bucket.Add(-s.retention)
	if err := s.alertStore.DeleteAlertsBefore(ctx, cutoff); err != nil {
		logger.Warn().Err(err).Time("cutoff", cutoff).Msg("failed to prune alert history")
	}
}

func (s *Service) dueForNotification(ctx context.Context, alerts []alerting.Alert, logger zerolog.Logger) map[string]bool {
	due := make(map[string]bool, len(alerts))
	for _, a := range alerts {
		if s.cooldown == nil {
			due[a.ID] = true
			continue
		}
		ok, err := s.cooldown.Acquire(ctx, a.ID, s.cooldownTTL)
		if err != nil {
			logger.Warn().Err(err).Str("alert_id", a.ID).Msg("cooldown check failed; notifying anyway")
			ok = true
		}
		if ok {
			due[a.ID] = true
		}
	}
	return due
}

func (s *Service) persist(ctx context.Context, ev Evaluation, due map[string]bool, logger zerolog.Logger) {
	if s.alertStore == nil {
		return
	}
	for _, a := range ev.Alerts {
		rec, err := storage.NewAlertRecord(ev.RunID, a, due[a.ID] && len(s.notifiers) > 0)
		if err != nil {
			logger.Error().Err(err).Str("alert_id", a.ID).Msg("failed to encode alert record")
			continue
		}
		if _, err := s.alertStore.InsertAlert(ctx, rec); err != nil {
			logger.Error().Err(err).Str("alert_id", a.ID).Msg("failed to persist alert record")
		}
	}
}

func (s *Service) notify(ctx context.Context, ev Evaluation, due map[string]bool, logger zerolog.Logger) {
	if len(s.notifiers) == 0 {
		return
	}
	pending := make([]alerting.Alert, 0, len(due))
	for _, a := range ev.Alerts {
		if due[a.ID] {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		logger.Debug().Msg("no alerts outside cooldown")
		return
	}

	digest := alerting.Digest{
		RunID:       ev.RunID,
		GeneratedAt: ev.Now,
		Window:      ev.Window,
		Alerts:      pending,
		Configs:     ev.Configs,
	}
	for _, n := range s.notifiers {
		if err := n.Notify(ctx, digest); err != nil {
			s.metrics.ObserveNotification("error")
			logger.Error().Err(err).Msg("failed to dispatch alerts")
			continue
		}
		s.metrics.ObserveNotification("ok")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
