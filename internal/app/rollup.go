package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"pricewatch/internal/aggregate"
)

// Rollup prints the per-commodity price summary for one category.
func (a *App) Rollup(ctx context.Context, category string) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	observations, err := store.ListByCategory(ctx, category)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		fmt.Fprintf(os.Stdout, "no observations in category %q\n", category)
		return nil
	}

	rollups := aggregate.RollupCategory(observations)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Commodity\tCheapest\tAt\tAverage\tMax\tSources")
	for _, rollup := range rollups {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s (%d)\n",
			rollup.Commodity,
			rollup.CheapestPrice.StringFixed(2),
			rollup.CheapestSource,
			rollup.AvgPrice.StringFixed(2),
			rollup.MaxPrice.StringFixed(2),
			strings.Join(rollup.Sources, ", "),
			rollup.SourceCount,
		)
	}
	return writer.Flush()
}

// Categories lists every tracked category with its commodity count.
func (a *App) Categories(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	summaries, err := store.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(os.Stdout, "no categories tracked yet")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Category\tCommodities")
	for _, summary := range summaries {
		fmt.Fprintf(writer, "%s\t%d\n", summary.Name, summary.Commodities)
	}
	return writer.Flush()
}
