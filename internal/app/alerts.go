package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/alerting"
	"pricewatch/internal/storage"
)

// SetAlert creates or updates a price-drop alert for one owner and pattern.
// Re-setting an existing pattern replaces the target and reactivates it.
func (a *App) SetAlert(ctx context.Context, ownerRef, pattern string, target decimal.Decimal) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return errors.New("alert pattern must not be empty")
	}
	if !target.IsPositive() {
		return errors.New("target price must be greater than zero")
	}

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	alert, err := store.UpsertAlert(ctx, storage.Alert{
		OwnerRef:    ownerRef,
		ItemPattern: pattern,
		TargetPrice: target,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "alert #%d: notify when %q drops to %s or below\n",
		alert.ID, alert.ItemPattern, alert.TargetPrice.StringFixed(2))
	return nil
}

// ListAlerts prints the active alerts together with their current status.
func (a *App) ListAlerts(ctx context.Context, ownerRef string) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	alerts, err := store.ListActiveAlerts(ctx, ownerRef)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no active alerts")
		return nil
	}

	// Listing never notifies; the evaluator runs without a notifier here.
	evaluator := alerting.NewEvaluator(store, nil, a.Logger)
	results, err := evaluator.Evaluate(ctx, alerts)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tPattern\tTarget\tLatest\tSource\tStatus\tSince")
	for _, result := range results {
		latestPrice, latestSource := "-", "-"
		if result.Latest != nil {
			latestPrice = result.Latest.Price.StringFixed(2)
			latestSource = result.Latest.Source
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			result.Alert.ID,
			result.Alert.ItemPattern,
			result.Alert.TargetPrice.StringFixed(2),
			latestPrice,
			latestSource,
			result.Status,
			result.Alert.CreatedAt.UTC().Format(time.RFC3339),
		)
	}
	return writer.Flush()
}

// EvaluateAlerts checks every active alert and dispatches notifications for
// the triggered ones.
func (a *App) EvaluateAlerts(ctx context.Context, ownerRef string) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	alerts, err := store.ListActiveAlerts(ctx, ownerRef)
	if err != nil {
		return err
	}

	results, err := a.runEvaluation(ctx, store, alerts)
	if err != nil {
		return err
	}

	triggered := 0
	for _, result := range results {
		if result.Status == alerting.StatusTriggered {
			triggered++
		}
	}
	fmt.Fprintf(os.Stdout, "evaluated %d alerts, %d triggered\n", len(results), triggered)
	return nil
}

func (a *App) evaluateAlerts(ctx context.Context, store *storage.Store) error {
	alerts, err := store.ListActiveAlerts(ctx, "")
	if err != nil {
		return err
	}
	_, err = a.runEvaluation(ctx, store, alerts)
	return err
}

func (a *App) runEvaluation(ctx context.Context, store *storage.Store, alerts []storage.Alert) ([]alerting.Result, error) {
	evaluator := alerting.NewEvaluator(store, a.newNotifier(), a.Logger)
	return evaluator.Evaluate(ctx, alerts)
}
