package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/alerting"
	"pricewatch/internal/storage"
)

// SimulateAlert pushes a fabricated observation through the alert path to
// verify notification wiring without touching the database.
func (a *App) SimulateAlert(ctx context.Context, pattern string, target, price decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no notification channel configured")
	}

	lookup := &staticLookup{
		observation: storage.PriceObservation{
			CommodityName: pattern,
			ProductName:   fmt.Sprintf("%s (simulated)", pattern),
			Source:        "simulated",
			Price:         price,
			Kind:          storage.KindLive,
			ObservedAt:    time.Now().UTC(),
		},
	}

	evaluator := alerting.NewEvaluator(lookup, notifier, a.Logger)
	results, err := evaluator.Evaluate(ctx, []storage.Alert{{
		ID:          0,
		ItemPattern: pattern,
		TargetPrice: target,
		Active:      true,
	}})
	if err != nil {
		return err
	}

	for _, result := range results {
		fmt.Fprintf(os.Stdout, "alert %q at target %s against price %s: %s\n",
			result.Alert.ItemPattern,
			result.Alert.TargetPrice.StringFixed(2),
			price.StringFixed(2),
			result.Status,
		)
	}
	return nil
}

type staticLookup struct {
	observation storage.PriceObservation
}

func (s *staticLookup) LatestMatching(ctx context.Context, pattern string) (*storage.PriceObservation, error) {
	obs := s.observation
	return &obs, nil
}

var _ alerting.ObservationLookup = (*staticLookup)(nil)
