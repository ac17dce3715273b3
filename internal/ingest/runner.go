package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/extractor"
	"pricewatch/internal/fetcher"
	"pricewatch/internal/storage"
)

// Commodity is one entry of the fixed dashboard list.
type Commodity struct {
	Name     string
	Category string
}

// SessionPool hands out exclusive rendering sessions.
type SessionPool interface {
	Acquire(ctx context.Context) (fetcher.PageSession, func(), error)
}

// SessionPoolFunc adapts a function to the SessionPool interface.
type SessionPoolFunc func(ctx context.Context) (fetcher.PageSession, func(), error)

// Acquire calls the wrapped function.
func (f SessionPoolFunc) Acquire(ctx context.Context) (fetcher.PageSession, func(), error) {
	return f(ctx)
}

// ObservationAppender is the narrow write surface the runner needs.
type ObservationAppender interface {
	AppendObservation(ctx context.Context, obs storage.PriceObservation) error
}

// Options tune one runner.
type Options struct {
	Commodities      []Commodity
	InterSourceDelay time.Duration
	InterItemDelay   time.Duration
	MaxMatches       int
	DefaultCategory  string
}

// Summary is the aggregate outcome of one ingestion run. Per-pair failures
// are deliberately reduced to counts here; the detail lives in the logs.
type Summary struct {
	Pairs  int
	Saved  int
	Failed int
}

// Runner drives the fan-out over (commodity, source) pairs. All sources are
// visited sequentially through one exclusively-held rendering session, with
// fixed delays between items and sources as backpressure against
// anti-automation defenses.
type Runner struct {
	opts     Options
	pool     SessionPool
	adapters []*fetcher.Adapter
	extract  extractor.Extractor
	store    ObservationAppender
	logger   zerolog.Logger
}

// NewRunner wires an ingestion runner.
func NewRunner(opts Options, pool SessionPool, adapters []*fetcher.Adapter, ex extractor.Extractor, store ObservationAppender, logger zerolog.Logger) *Runner {
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = extractor.DefaultMaxMatches
	}
	if opts.DefaultCategory == "" {
		opts.DefaultCategory = "General"
	}
	return &Runner{
		opts:     opts,
		pool:     pool,
		adapters: adapters,
		extract:  ex,
		store:    store,
		logger:   logger.With().Str("component", "ingest").Logger(),
	}
}

// Refresh scrapes the fixed commodity list from every source in
// single-best-match mode. Store failures abort the remaining writes for the
// affected commodity only; they are joined into the returned error while the
// rest of the run proceeds.
func (r *Runner) Refresh(ctx context.Context) (Summary, error) {
	session, release, err := r.pool.Acquire(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("acquire rendering session: %w", err)
	}
	defer release()

	var summary Summary
	var storeErrs []error
	for i, commodity := range r.opts.Commodities {
		if i > 0 {
			if err := r.pause(ctx, r.opts.InterItemDelay); err != nil {
				return summary, errors.Join(append(storeErrs, err)...)
			}
		}

		intent := Intent{Term: commodity.Name, Category: commodity.Category, Kind: storage.KindDashboard}
		if err := r.runItem(ctx, session, intent, extractor.ModeBest, 1, r.adapters, &summary); err != nil {
			if ctx.Err() != nil {
				return summary, errors.Join(append(storeErrs, err)...)
			}
			storeErrs = append(storeErrs, err)
		}
	}

	r.logger.Info().
		Int("pairs", summary.Pairs).
		Int("saved", summary.Saved).
		Int("failed", summary.Failed).
		Msg("dashboard refresh finished")
	return summary, errors.Join(storeErrs...)
}

// LiveSearch scrapes one ad-hoc term across the chosen sources in
// multi-match mode.
func (r *Runner) LiveSearch(ctx context.Context, term string, adapters []*fetcher.Adapter) (Summary, error) {
	if len(adapters) == 0 {
		adapters = r.adapters
	}

	session, release, err := r.pool.Acquire(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("acquire rendering session: %w", err)
	}
	defer release()

	var summary Summary
	intent := Intent{Term: term, Category: r.opts.DefaultCategory, Kind: storage.KindLive}
	err = r.runItem(ctx, session, intent, extractor.ModeMulti, r.opts.MaxMatches, adapters, &summary)

	r.logger.Info().
		Str("term", term).
		Int("pairs", summary.Pairs).
		Int("saved", summary.Saved).
		Int("failed", summary.Failed).
		Msg("live search finished")
	return summary, err
}

// runItem visits each source for one intent. Fetch and extraction failures
// are logged and skipped; a store failure aborts the item's remaining writes
// and surfaces.
func (r *Runner) runItem(ctx context.Context, session fetcher.PageSession, intent Intent, mode extractor.Mode, maxMatches int, adapters []*fetcher.Adapter, summary *Summary) error {
	for j, adapter := range adapters {
		if j > 0 {
			if err := r.pause(ctx, r.opts.InterSourceDelay); err != nil {
				return err
			}
		}

		summary.Pairs++
		src := adapter.Source().Name

		text, err := adapter.Fetch(ctx, session, intent.Term)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary.Failed++
			r.logger.Warn().Err(err).Str("source", src).Str("term", intent.Term).Msg("fetch failed, skipping pair")
			continue
		}

		candidates, err := r.extract.Extract(ctx, extractor.Request{
			Term:       intent.Term,
			Source:     src,
			PageText:   text,
			Mode:       mode,
			MaxMatches: maxMatches,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn().Err(err).Str("source", src).Str("term", intent.Term).Msg("extraction failed, treating as no match")
			candidates = nil
		}
		candidates = dedupeCandidates(candidates)

		saved := 0
		observedAt := time.Now().UTC()
		for _, candidate := range candidates {
			obs, err := Normalize(candidate, intent, src, observedAt)
			if err != nil {
				r.logger.Debug().Err(err).Str("source", src).Str("term", intent.Term).Msg("candidate dropped")
				continue
			}
			if err := r.store.AppendObservation(ctx, obs); err != nil {
				summary.Failed++
				return fmt.Errorf("append observation for %q from %s: %w", intent.Term, src, err)
			}
			saved++
		}

		if saved == 0 {
			r.logger.Info().Str("source", src).Str("term", intent.Term).Msg("no match")
		} else {
			summary.Saved += saved
			r.logger.Info().Int("saved", saved).Str("source", src).Str("term", intent.Term).Msg("observations recorded")
		}
	}
	return nil
}

func (r *Runner) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
