package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"pricewatch/internal/scheduler"
)

// Refresh runs one dashboard scrape pass over the configured commodity list.
func (a *App) Refresh(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	registry, err := a.newRegistry()
	if err != nil {
		return err
	}

	runner, _, closeBrowsers, err := a.newRunner(store, registry.All())
	if err != nil {
		return err
	}
	defer closeBrowsers()

	summary, err := runner.Refresh(ctx)
	a.Logger.Info().
		Int("pairs", summary.Pairs).
		Int("saved", summary.Saved).
		Int("failed", summary.Failed).
		Msg("refresh complete")
	return err
}

// Watch runs the periodic refresh loop until interrupted. After each pass the
// active alerts are evaluated against the fresh observations.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	registry, err := a.newRegistry()
	if err != nil {
		return err
	}

	runner, _, closeBrowsers, err := a.newRunner(store, registry.All())
	if err != nil {
		return err
	}
	defer closeBrowsers()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting watch loop")

	err = sched.Run(ctx, func(ctx context.Context, bucket time.Time) error {
		if _, err := runner.Refresh(ctx); err != nil {
			return err
		}
		if !a.Config.Alerting.Enabled {
			return nil
		}
		return a.evaluateAlerts(ctx, store)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}
