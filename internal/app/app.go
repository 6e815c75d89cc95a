package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"campaign-alerts/internal/aggregate"
	"campaign-alerts/internal/alerting"
	"campaign-alerts/internal/cache"
	"campaign-alerts/internal/config"
	"campaign-alerts/internal/httpapi"
	"campaign-alerts/internal/metrics"
	"campaign-alerts/internal/scheduler"
	"campaign-alerts/internal/service"
	"campaign-alerts/internal/source"
	"campaign-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

// runtime holds the collaborators opened for one command.
type runtime struct {
	svc      *service.Service
	svcOpts  service.Options
	store    *storage.Store
	redis    *cache.Redis
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	closers  []func()
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// ready reports whether the backing stores answer.
func (rt *runtime) ready(ctx context.Context) error {
	if rt.store != nil {
		if err := rt.store.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if rt.redis != nil {
		if err := rt.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// buildOptions selects the collaborators of a runtime.
type buildOptions struct {
	// rows replaces the database as row source, entity resolver and config source.
	rows *source.Memory
	// schedule attaches the aligned scheduler.
	schedule bool
	// notify attaches the configured notification channels.
	notify bool
	// dryRun keeps the database as source but skips the alert audit.
	dryRun bool
}

func (a *App) build(ctx context.Context, opts buildOptions) (*runtime, error) {
	rt := &runtime{}
	ok := false
	defer func() {
		if !ok {
			rt.close()
		}
	}()

	if a.Config.Metrics.Enabled {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rt.metrics = metrics.New(a.Config.Metrics.Namespace, rt.registry)
	}

	svcOpts := service.Options{
		Aggregator: aggregate.New(aggregate.ClientAliases(a.Config.Aggregation.ClientAliases)),
		Engine: alerting.NewEngine(alerting.Options{
			Defaults: alerting.Thresholds{
				ROASMin: a.Config.Alerting.ROASMin,
				CPAMax:  a.Config.Alerting.CPAMax,
				CTRMin:  a.Config.Alerting.CTRMin,
			},
			CPCBaseline: alerting.StaticCPC(a.Config.Alerting.AvgCPC),
		}),
		CooldownTTL:  a.Config.Alerting.Cooldown,
		Retention:    a.Config.Alerting.Retention,
		LockKey:      a.Config.Scheduler.AdvisoryLockKey,
		Metrics:      rt.metrics,
		LookbackDays: a.Config.Source.LookbackDays,
		TopCampaigns: a.Config.Aggregation.TopCampaigns,
		Logger:       a.Logger,
	}

	if opts.rows != nil {
		svcOpts.Rows, svcOpts.Resolver, svcOpts.Configs = opts.rows, opts.rows, opts.rows
		svcOpts.LockKey = 0
	} else if err := a.attachSource(ctx, rt, &svcOpts, opts.dryRun); err != nil {
		return nil, err
	}

	if err := a.attachCache(ctx, rt, &svcOpts); err != nil {
		return nil, err
	}

	if opts.notify {
		svcOpts.Notifiers = a.newNotifiers()
	}
	if opts.schedule {
		svcOpts.Scheduler = scheduler.New(scheduler.Options{
			Interval:     a.Config.Scheduler.Interval,
			AlignToStart: a.Config.Scheduler.AlignToBucket,
			StartupDelay: a.Config.Scheduler.StartupDelay,
			RunOnStart:   a.Config.Scheduler.RunOnStart,
		}, a.Logger)
	}

	rt.svcOpts = svcOpts
	rt.svc = service.New(svcOpts)
	ok = true
	return rt, nil
}

// attachSource prefers the database and falls back to the reporting API.
func (a *App) attachSource(ctx context.Context, rt *runtime, svcOpts *service.Options, dryRun bool) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		rt.store = store
		rt.closers = append(rt.closers, store.Close)
		svcOpts.Rows, svcOpts.Resolver, svcOpts.Configs = store, store, store
		if !dryRun {
			svcOpts.AlertStore = store
		}
		return nil
	}

	rest := a.Config.Source.REST
	if rest.BaseURL == "" {
		return errors.New("neither database.dsn nor source.rest.base_url configured; no metric source available")
	}
	a.Logger.Warn().Str("base_url", rest.BaseURL).Msg("database.dsn not configured; reading from reporting api without alert history")
	api := source.NewREST(source.RESTOptions{
		BaseURL:   rest.BaseURL,
		Token:     rest.Token,
		Timeout:   rest.Timeout,
		UserAgent: rest.UserAgent,
		MaxRows:   a.Config.Source.MaxRows,
	}, a.Logger)
	svcOpts.Rows, svcOpts.Resolver, svcOpts.Configs = api, api, api
	svcOpts.LockKey = 0
	return nil
}

func (a *App) attachCache(ctx context.Context, rt *runtime, opts *service.Options) error {
	if !a.Config.Redis.Enabled {
		mem := cache.NewMemory()
		opts.Cooldown, opts.Resolved = mem, mem
		return nil
	}
	r, err := cache.NewRedis(ctx, cache.RedisOptions{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
		Prefix:   a.Config.Redis.Prefix,
	}, a.Logger)
	if err != nil {
		return err
	}
	rt.redis = r
	rt.closers = append(rt.closers, func() { _ = r.Close() })
	opts.Cooldown, opts.Resolved = r, r
	return nil
}

func (a *App) newNotifiers() []alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	var out []alerting.Notifier
	if tg := a.Config.Alerting.Telegram; tg.Enabled && a.Config.ChannelEnabled("telegram") {
		out = append(out, alerting.NewTelegramNotifier(tg.BotToken, tg.ChatID, tg.APIBase, tg.Timeout, a.Logger))
	}
	if wh := a.Config.Alerting.Webhook; wh.Enabled && a.Config.ChannelEnabled("webhook") {
		out = append(out, alerting.NewWebhookNotifier(wh.URL, wh.Timeout, a.Logger))
	}
	return out
}

func (a *App) openStore(ctx context.Context) (*storage.Store, error) {
	if a.Config.Database.DSN == "" {
		return nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, err
	}
	return storage.NewStore(pool, a.Config.Source.MaxRows), nil
}

// Run executes the long-running scheduled evaluation service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := a.build(ctx, buildOptions{schedule: true, notify: true})
	if err != nil {
		return err
	}
	defer rt.close()

	if !a.Config.Alerting.Enabled {
		a.Logger.Warn().Msg("alerting disabled; alerts are evaluated and persisted without notification")
	}

	a.Logger.Info().
		Dur("interval", a.Config.Scheduler.Interval).
		Int("lookback_days", a.Config.Source.LookbackDays).
		Msg("starting alert evaluation service")
	err = rt.svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("alert evaluation service stopped")
	return nil
}

// ServeOptions configure the HTTP API.
type ServeOptions struct {
	Addr string
	// WithScheduler also runs the scheduled evaluation loop in-process.
	WithScheduler bool
}

// Serve exposes the JSON API until the process is signalled.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := a.build(ctx, buildOptions{schedule: opts.WithScheduler, notify: opts.WithScheduler})
	if err != nil {
		return err
	}
	defer rt.close()

	addr := opts.Addr
	if addr == "" {
		addr = a.Config.HTTP.Addr
	}

	var metricsHandler http.Handler
	if rt.metrics != nil {
		metricsHandler = rt.metrics.Handler()
	}
	srv := &http.Server{
		Addr: addr,
		Handler: httpapi.NewRouter(httpapi.Options{
			Service: rt.svc,
			Metrics: metricsHandler,
			Ready:   rt.ready,
			Logger:  a.Logger,
		}),
		ReadTimeout:  a.Config.HTTP.ReadTimeout,
		WriteTimeout: a.Config.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		a.Logger.Info().Str("addr", addr).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if opts.WithScheduler {
		go func() {
			if err := rt.svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-errCh:
		a.Logger.Error().Err(err).Msg("server terminated with error")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		a.Logger.Warn().Err(shutdownErr).Msg("http shutdown incomplete")
	}
	a.Logger.Info().Msg("http api stopped")
	return err
}

// ExportOptions hold parameters for exporting the daily series.
type ExportOptions struct {
	Filters   FilterOptions
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// BackfillOptions configure the alert replay job.
type BackfillOptions struct {
	From       time.Time
	To         time.Time
	ReplayHour int
	DryRun     bool
	Workers    int
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Limit int
}
