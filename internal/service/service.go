package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/aggregate"
	"campaign-alerts/internal/alerting"
	"campaign-alerts/internal/cache"
	"campaign-alerts/internal/metrics"
	"campaign-alerts/internal/period"
	"campaign-alerts/internal/scheduler"
	"campaign-alerts/internal/source"
	"campaign-alerts/internal/storage"
)

const (
	windowCurrent    = "current"
	windowComparison = "comparison"
)

// Options wire the collaborators of a Service. Only Rows is required.
type Options struct {
	Rows     source.RowSource
	Resolver source.EntityResolver
	Configs  source.ConfigSource

	Aggregator *aggregate.Aggregator
	Engine     *alerting.Engine

	Resolved    cache.ResolvedSet
	Cooldown    cache.Cooldown
	CooldownTTL time.Duration

	AlertStore storage.AlertStore
	Locker     storage.AdvisoryLocker
	LockKey    int64
	// Retention prunes audit records older than the tick bucket minus this age.
	Retention  time.Duration

	Notifiers    []alerting.Notifier
	Scheduler    *scheduler.Scheduler
	Metrics      *metrics.Metrics
	LookbackDays int
	TopCampaigns int
	Now          func() time.Time
	Logger       zerolog.Logger
}

// Service runs the request-scoped fetch, aggregate, compare and evaluate cycle.
// It keeps no state between requests.
type Service struct {
	rows     source.RowSource
	resolver source.EntityResolver
	configs  source.ConfigSource

	aggregator *aggregate.Aggregator
	engine     *alerting.Engine

	resolved    cache.ResolvedSet
	cooldown    cache.Cooldown
	cooldownTTL time.Duration

	alertStore storage.AlertStore
	locker     storage.AdvisoryLocker
	lockKey    int64
	retention  time.Duration

	notifiers    []alerting.Notifier
	scheduler    *scheduler.Scheduler
	metrics      *metrics.Metrics
	lookbackDays int
	topN         int
	now          func() time.Time
	logger       zerolog.Logger
}

// New constructs the service, filling unset options with defaults.
func New(opts Options) *Service {
	if opts.Aggregator == nil {
		opts.Aggregator = aggregate.New(nil)
	}
	if opts.Engine == nil {
		opts.Engine = alerting.NewEngine(alerting.Options{})
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 7
	}
	if opts.TopCampaigns <= 0 {
		opts.TopCampaigns = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Locker == nil {
		if l, ok := opts.AlertStore.(storage.AdvisoryLocker); ok {
			opts.Locker = l
		}
	}

	return &Service{
		rows:         opts.Rows,
		resolver:     opts.Resolver,
		configs:      opts.Configs,
		aggregator:   opts.Aggregator,
		engine:       opts.Engine,
		resolved:     opts.Resolved,
		cooldown:     opts.Cooldown,
		cooldownTTL:  opts.CooldownTTL,
		alertStore:   opts.AlertStore,
		locker:       opts.Locker,
		lockKey:      opts.LockKey,
		retention:    opts.Retention,
		notifiers:    opts.Notifiers,
		scheduler:    opts.Scheduler,
		metrics:      opts.Metrics,
		lookbackDays: opts.LookbackDays,
		topN:         opts.TopCampaigns,
		now:          opts.Now,
		logger:       opts.Logger.With().Str("component", "service").Logger(),
	}
}

// snapshot is the filtered input of one request.
type snapshot struct {
	window      period.Range
	against     period.Range
	yoy         bool
	current     []ads.Row
	previous    []ads.Row
	hasPrevious bool
}

// load resolves entities and fetches the current and comparison windows
// concurrently. ok is false when the request degrades to an empty result.
// Only context cancellation is returned as an error.
func (s *Service) load(ctx context.Context, f ads.Filters, logger zerolog.Logger) (snapshot, bool, error) {
	window, ok := f.Range()
	if !ok {
		logger.Debug().Msg("no date range in filters; returning empty result")
		return snapshot{}, false, nil
	}
	if s.rows == nil {
		return snapshot{}, false, fmt.Errorf("row source not configured")
	}

	snap := snapshot{window: window, against: window.Comparison(f.CompareYearAgo), yoy: f.CompareYearAgo}

	var accountIDs []string
	if f.HasEntityFilter() {
		if s.resolver == nil {
			logger.Warn().Msg("entity filter set without an account resolver; returning empty result")
			return snap, false, nil
		}
		ids, err := s.resolver.ResolveAccounts(ctx, f)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return snapshot{}, false, ctxErr
			}
			logger.Error().Err(err).Msg("resolve accounts failed; returning empty result")
			return snap, false, nil
		}
		if ids != nil && len(ids) == 0 {
			logger.Debug().Msg("entity filter matched no accounts")
			return snap, false, nil
		}
		accountIDs = ids
	}

	var currentErr, previousErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.current, currentErr = s.fetch(gctx, windowCurrent, snap.window, accountIDs)
		return nil
	})
	g.Go(func() error {
		snap.previous, previousErr = s.fetch(gctx, windowComparison, snap.against, accountIDs)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return snapshot{}, false, err
	}
	if currentErr != nil {
		logger.Error().Err(currentErr).Str("window", snap.window.String()).Msg("current period fetch failed; using empty rows")
		snap.current = nil
		snap.previous = nil
	} else if previousErr != nil {
		logger.Warn().Err(previousErr).Str("window", snap.against.String()).Msg("comparison fetch failed; comparison unavailable")
		snap.previous = nil
	} else {
		snap.hasPrevious = true
	}

	snap.current = f.Apply(snap.current)
	snap.previous = f.Apply(snap.previous)
	return snap, true, nil
}

func (s *Service) fetch(ctx context.Context, label string, r period.Range, accountIDs []string) ([]ads.Row, error) {
	start := time.Now()
	rows, err := s.rows.FetchRows(ctx, r, accountIDs)
	s.metrics.ObserveFetch(label, len(rows), time.Since(start), err)
	return rows, err
}

func (s *Service) runLogger(runID string) zerolog.Logger {
	return s.logger.With().Str("run_id", runID).Logger()
}

func newRunID() string {
	return uuid.NewString()
}
