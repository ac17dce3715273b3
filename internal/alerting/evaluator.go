package alerting

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"pricewatch/internal/storage"
)

// Status classifies one alert against the latest matching observation.
type Status string

const (
	// StatusTriggered means the latest price is at or below the target.
	StatusTriggered Status = "triggered"
	// StatusPending means a match exists but is still above the target.
	StatusPending Status = "pending"
	// StatusNoData means no observation matches the alert's pattern yet.
	StatusNoData Status = "no data yet"
)

// Result is the evaluation outcome for one alert.
type Result struct {
	Alert  storage.Alert
	Status Status
	Latest *storage.PriceObservation
}

// ObservationLookup is the narrow read surface the evaluator needs.
type ObservationLookup interface {
	LatestMatching(ctx context.Context, pattern string) (*storage.PriceObservation, error)
}

// Evaluator matches alerts against the newest observations. Evaluation is
// strictly read-only: it never flips an alert's active flag, and an alert
// that stays below target triggers again on every call.
type Evaluator struct {
	lookup   ObservationLookup
	notifier Notifier
	logger   zerolog.Logger
}

// NewEvaluator wires the evaluator. The notifier may be nil, in which case
// triggered alerts are only reported in the results.
func NewEvaluator(lookup ObservationLookup, notifier Notifier, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		lookup:   lookup,
		notifier: notifier,
		logger:   logger.With().Str("component", "alert_evaluator").Logger(),
	}
}

// Evaluate checks every active alert. A store read failure surfaces; a
// notification failure is logged and does not fail the evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, alerts []storage.Alert) ([]Result, error) {
	results := make([]Result, 0, len(alerts))
	for _, alert := range alerts {
		if !alert.Active {
			continue
		}

		latest, err := e.lookup.LatestMatching(ctx, alert.ItemPattern)
		if err != nil {
			return nil, fmt.Errorf("lookup latest for %q: %w", alert.ItemPattern, err)
		}

		result := Result{Alert: alert, Latest: latest}
		switch {
		case latest == nil:
			result.Status = StatusNoData
		case latest.Price.LessThanOrEqual(alert.TargetPrice):
			result.Status = StatusTriggered
		default:
			result.Status = StatusPending
		}
		results = append(results, result)

		if result.Status != StatusTriggered {
			continue
		}

		e.logger.Info().
			Str("pattern", alert.ItemPattern).
			Str("target", alert.TargetPrice.String()).
			Str("price", latest.Price.String()).
			Str("source", latest.Source).
			Msg("price target met")

		if e.notifier == nil {
			continue
		}
		note := Notification{
			ItemPattern: alert.ItemPattern,
			TargetPrice: alert.TargetPrice,
			Price:       latest.Price,
			ProductName: latest.ProductName,
			Source:      latest.Source,
			ObservedAt:  latest.ObservedAt,
		}
		if err := e.notifier.Notify(ctx, note); err != nil {
			e.logger.Error().Err(err).Str("pattern", alert.ItemPattern).Msg("failed to dispatch price-drop notification")
		}
	}
	return results, nil
}
