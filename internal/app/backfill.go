package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"campaign-alerts/internal/period"
	"campaign-alerts/internal/service"
)

// Backfill 按天回放告警评估，把历史告警写入审计表。
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	start := period.Day(opts.From)
	end := period.Day(opts.To)
	if end.Before(start) {
		return errors.New("回填范围为空，请检查 --from/--to")
	}
	if opts.ReplayHour < 0 || opts.ReplayHour > 23 {
		return errors.New("--hour 必须在 0-23 之间")
	}

	if opts.DryRun {
		a.Logger.Warn().Msg("回填 dry-run：不会写入数据库")
	}

	rt, err := a.build(ctx, buildOptions{dryRun: opts.DryRun})
	if err != nil {
		return err
	}
	defer rt.close()

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var processed, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		day := day // per-iteration copy; go.mod targets go 1.21 loop semantics
		at := day.Add(time.Duration(opts.ReplayHour) * time.Hour)
		svc := service.New(replayOptions(rt.svcOpts, at))
		g.Go(func() error {
			if err := svc.ProcessTick(gctx, at); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				a.Logger.Error().Err(err).Time("day", day).Msg("回填失败")
				return nil
			}
			processed.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	a.Logger.Info().Int32("processed", processed.Load()).Int32("failed", failed.Load()).Msg("回填完成")
	if failed.Load() > 0 {
		return errors.New("部分日期回填失败，请检查日志")
	}
	return nil
}

// replayOptions evaluates as if the clock read at. Replays never notify and
// never contend for the scheduler lock.
func replayOptions(opts service.Options, at time.Time) service.Options {
	opts.Now = func() time.Time { return at }
	opts.Notifiers = nil
	opts.Cooldown = nil
	opts.Scheduler = nil
	opts.LockKey = 0
	opts.Locker = nil
	opts.Retention = 0
	return opts
}
