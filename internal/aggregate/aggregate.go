package aggregate

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"pricewatch/internal/storage"
)

// ErrNoData marks an aggregation request over zero observations. Callers
// surface it as an explicit no-data result, never as an empty success.
var ErrNoData = errors.New("aggregate: no observations")

const dateLayout = "2006-01-02"

// CommodityRollup is a derived, ephemeral view over one commodity's
// observations. It is recomputed from the full set on every request.
type CommodityRollup struct {
	Commodity      string
	CheapestPrice  decimal.Decimal
	CheapestSource string
	AvgPrice       decimal.Decimal
	MaxPrice       decimal.Decimal
	Sources        []string
	SourceCount    int
}

// RollupCategory groups observations by commodity and derives cheapest,
// mean, and maximum prices. Ties on the minimum price go to the first
// observation after an ascending, order-preserving sort. The output is
// sorted by commodity name, so repeated calls over the same input are
// byte-identical.
func RollupCategory(observations []storage.PriceObservation) []CommodityRollup {
	groups := make(map[string][]storage.PriceObservation)
	for _, obs := range observations {
		groups[obs.CommodityName] = append(groups[obs.CommodityName], obs)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	rollups := make([]CommodityRollup, 0, len(names))
	for _, name := range names {
		rollups = append(rollups, rollupCommodity(name, groups[name]))
	}
	return rollups
}

func rollupCommodity(name string, group []storage.PriceObservation) CommodityRollup {
	sorted := make([]storage.PriceObservation, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price.LessThan(sorted[j].Price)
	})

	cheapest := sorted[0]
	max := sorted[len(sorted)-1].Price

	sum := decimal.Zero
	seen := make(map[string]struct{})
	var sources []string
	for _, obs := range group {
		sum = sum.Add(obs.Price)
		if _, ok := seen[obs.Source]; !ok {
			seen[obs.Source] = struct{}{}
			sources = append(sources, obs.Source)
		}
	}
	sort.Strings(sources)

	return CommodityRollup{
		Commodity:      name,
		CheapestPrice:  cheapest.Price,
		CheapestSource: cheapest.Source,
		AvgPrice:       sum.Div(decimal.NewFromInt(int64(len(group)))),
		MaxPrice:       max,
		Sources:        sources,
		SourceCount:    len(sources),
	}
}

// SourceSeries is one source's price series aligned to the shared date axis.
// A nil entry is a gap: no observation from that source on that date. Gaps
// are never interpolated.
type SourceSeries struct {
	Source string
	Prices []*decimal.Decimal
}

// Series is the multi-source history of one commodity or search term.
type Series struct {
	Dates   []string
	Sources []SourceSeries
}

// History builds the sorted distinct calendar-date axis across all sources
// and one aligned series per source that has at least one observation.
// Observations must already be in ascending time order; within a date the
// latest observation wins.
func History(observations []storage.PriceObservation, sources []string) (Series, error) {
	if len(observations) == 0 {
		return Series{}, ErrNoData
	}

	dateSet := make(map[string]struct{})
	bySource := make(map[string]map[string]decimal.Decimal)
	for _, obs := range observations {
		date := obs.ObservedAt.UTC().Format(dateLayout)
		dateSet[date] = struct{}{}

		points, ok := bySource[obs.Source]
		if !ok {
			points = make(map[string]decimal.Decimal)
			bySource[obs.Source] = points
		}
		points[date] = obs.Price
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	if len(sources) == 0 {
		for src := range bySource {
			sources = append(sources, src)
		}
		sort.Strings(sources)
	}

	series := Series{Dates: dates}
	for _, src := range sources {
		points, ok := bySource[src]
		if !ok {
			continue
		}
		prices := make([]*decimal.Decimal, len(dates))
		for i, date := range dates {
			if price, ok := points[date]; ok {
				p := price
				prices[i] = &p
			}
		}
		series.Sources = append(series.Sources, SourceSeries{Source: src, Prices: prices})
	}

	return series, nil
}

// Snapshot summarises the latest observation from each source.
type Snapshot struct {
	Min  decimal.Decimal
	Max  decimal.Decimal
	Avg  decimal.Decimal
	Best storage.PriceObservation
}

// LatestSnapshot derives min/avg/max and the cheapest offer from a
// latest-per-source slice.
func LatestSnapshot(latest []storage.PriceObservation) (Snapshot, error) {
	if len(latest) == 0 {
		return Snapshot{}, ErrNoData
	}

	snap := Snapshot{
		Min:  latest[0].Price,
		Max:  latest[0].Price,
		Best: latest[0],
	}
	sum := decimal.Zero
	for _, obs := range latest {
		sum = sum.Add(obs.Price)
		if obs.Price.LessThan(snap.Min) {
			snap.Min = obs.Price
			snap.Best = obs
		}
		if obs.Price.GreaterThan(snap.Max) {
			snap.Max = obs.Price
		}
	}
	snap.Avg = sum.Div(decimal.NewFromInt(int64(len(latest))))
	return snap, nil
}

// LatestBySource reduces a time-ordered observation slice to the most recent
// entry per source, ordered by source name for determinism.
func LatestBySource(observations []storage.PriceObservation) []storage.PriceObservation {
	latest := make(map[string]storage.PriceObservation)
	for _, obs := range observations {
		current, ok := latest[obs.Source]
		if !ok || !obs.ObservedAt.Before(current.ObservedAt) {
			latest[obs.Source] = obs
		}
	}

	names := make([]string, 0, len(latest))
	for name := range latest {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]storage.PriceObservation, 0, len(names))
	for _, name := range names {
		out = append(out, latest[name])
	}
	return out
}
