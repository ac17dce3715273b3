package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"pricewatch/internal/aggregate"
	"pricewatch/internal/fetcher"
)

// Search scrapes one ad-hoc term across the chosen sources, stores every
// match as a live observation, and prints the resulting price spread.
func (a *App) Search(ctx context.Context, opts SearchOptions) error {
	term := strings.TrimSpace(opts.Term)
	if term == "" {
		return errors.New("search term must not be empty")
	}

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	registry, err := a.newRegistry()
	if err != nil {
		return err
	}
	selected, err := registry.Select(opts.Sources)
	if err != nil {
		return err
	}

	runner, adapters, closeBrowsers, err := a.newRunner(store, registry.All())
	if err != nil {
		return err
	}
	defer closeBrowsers()

	chosen := make([]*fetcher.Adapter, 0, len(selected))
	for _, src := range selected {
		for _, adapter := range adapters {
			if adapter.Source().Name == src.Name {
				chosen = append(chosen, adapter)
			}
		}
	}

	summary, err := runner.LiveSearch(ctx, term, chosen)
	if err != nil {
		return err
	}
	if summary.Saved == 0 {
		fmt.Fprintf(os.Stdout, "no matches for %q\n", term)
		return nil
	}

	observations, err := store.ListBySearchTerm(ctx, term)
	if err != nil {
		return err
	}
	latest := aggregate.LatestBySource(observations)
	snap, err := aggregate.LatestSnapshot(latest)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Source\tProduct\tPrice\tUnit")
	for _, obs := range latest {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", obs.Source, obs.ProductName, obs.Price.StringFixed(2), obs.Unit)
	}
	writer.Flush()

	fmt.Fprintf(os.Stdout, "\nmin %s  avg %s  max %s  best: %s at %s\n",
		snap.Min.StringFixed(2),
		snap.Avg.StringFixed(2),
		snap.Max.StringFixed(2),
		snap.Best.ProductName,
		snap.Best.Source,
	)
	return nil
}
