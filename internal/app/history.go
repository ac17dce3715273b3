package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"pricewatch/internal/aggregate"
	"pricewatch/internal/storage"
)

// History prints the multi-source daily price series for a commodity. Terms
// only ever seen through live search are looked up by search term instead.
func (a *App) History(ctx context.Context, commodity string) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	series, err := a.loadSeries(ctx, store, commodity)
	if errors.Is(err, aggregate.ErrNoData) {
		fmt.Fprintf(os.Stdout, "no price history for %q\n", commodity)
		return nil
	}
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	header := "Date"
	for _, src := range series.Sources {
		header += "\t" + src.Source
	}
	fmt.Fprintln(writer, header)

	for i, date := range series.Dates {
		row := date
		for _, src := range series.Sources {
			if price := src.Prices[i]; price != nil {
				row += "\t" + price.StringFixed(2)
			} else {
				row += "\t-"
			}
		}
		fmt.Fprintln(writer, row)
	}
	return writer.Flush()
}

func (a *App) loadSeries(ctx context.Context, store storage.ObservationStore, commodity string) (aggregate.Series, error) {
	observations, err := store.ListByCommodity(ctx, commodity)
	if err != nil {
		return aggregate.Series{}, err
	}
	if len(observations) == 0 {
		observations, err = store.ListBySearchTerm(ctx, commodity)
		if err != nil {
			return aggregate.Series{}, err
		}
	}
	return aggregate.History(observations, nil)
}
