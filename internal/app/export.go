package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"pricewatch/internal/storage"
)

// Export renders a commodity's price history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Commodity == "" {
		return errors.New("--commodity must be provided")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	observations, err := store.ListByCommodity(ctx, opts.Commodity)
	if err != nil {
		return err
	}
	observations = clampWindow(observations, opts.From, opts.To)
	if len(observations) == 0 {
		a.Logger.Info().Str("commodity", opts.Commodity).Msg("no observations found for export window")
		return nil
	}

	downsampled := downsampleObservations(observations, opts.MaxPoints)
	a.Logger.Info().
		Int("total", len(observations)).
		Int("exported", len(downsampled)).
		Str("commodity", opts.Commodity).
		Msg("exporting observations")

	if opts.CSVPath != "" {
		if err := writeObservationsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeObservationsPNG(opts.PNGPath, opts.Commodity, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func clampWindow(observations []storage.PriceObservation, from, to *time.Time) []storage.PriceObservation {
	if from == nil && to == nil {
		return observations
	}
	out := observations[:0]
	for _, obs := range observations {
		if from != nil && obs.ObservedAt.Before(from.UTC()) {
			continue
		}
		if to != nil && !obs.ObservedAt.Before(to.UTC()) {
			continue
		}
		out = append(out, obs)
	}
	return out
}

func downsampleObservations(observations []storage.PriceObservation, max int) []storage.PriceObservation {
	if max <= 0 || len(observations) <= max {
		return observations
	}

	result := make([]storage.PriceObservation, 0, max)
	step := float64(len(observations)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(observations) {
			idx = len(observations) - 1
		}
		result = append(result, observations[idx])
	}
	return result
}

func writeObservationsCSV(path string, observations []storage.PriceObservation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"observed_at", "commodity", "product", "source", "category", "unit", "price", "kind"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, obs := range observations {
		record := []string{
			obs.ObservedAt.UTC().Format(time.RFC3339),
			obs.CommodityName,
			obs.ProductName,
			obs.Source,
			obs.Category,
			obs.Unit,
			obs.Price.String(),
			string(obs.Kind),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// writeObservationsPNG draws one line per source. Sources with fewer than two
// points cannot form a line and are dropped from the chart.
func writeObservationsPNG(path, commodity string, observations []storage.PriceObservation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	bySource := make(map[string][]storage.PriceObservation)
	for _, obs := range observations {
		bySource[obs.Source] = append(bySource[obs.Source], obs)
	}

	names := make([]string, 0, len(bySource))
	for name := range bySource {
		names = append(names, name)
	}
	sort.Strings(names)

	var series []chart.Series
	for _, name := range names {
		points := bySource[name]
		if len(points) < 2 {
			continue
		}
		x := make([]time.Time, len(points))
		y := make([]float64, len(points))
		for i, obs := range points {
			x[i] = obs.ObservedAt
			y[i] = obs.Price.InexactFloat64()
		}
		series = append(series, chart.TimeSeries{
			Name:    name,
			XValues: x,
			YValues: y,
		})
	}
	if len(series) == 0 {
		return errors.New("not enough data points to draw a chart")
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  commodity,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (KSh)",
			ValueFormatter: priceFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
