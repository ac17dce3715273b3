package aggregate

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/storage"
)

func obs(commodity, source string, price int64, observed time.Time) storage.PriceObservation {
	return storage.PriceObservation{
		CommodityName: commodity,
		ProductName:   commodity,
		Source:        source,
		Category:      "Food",
		Unit:          "1kg",
		Price:         decimal.NewFromInt(price),
		Kind:          storage.KindDashboard,
		ObservedAt:    observed,
	}
}

func TestRollupCategorySugarScenario(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	observations := []storage.PriceObservation{
		obs("Sugar 1kg", "Naivas", 150, now),
		obs("Sugar 1kg", "Jumia", 140, now),
		obs("Sugar 1kg", "Carrefour", 160, now),
	}

	rollups := RollupCategory(observations)
	if len(rollups) != 1 {
		t.Fatalf("expected 1 rollup, got %d", len(rollups))
	}

	r := rollups[0]
	if r.Commodity != "Sugar 1kg" {
		t.Fatalf("unexpected commodity: %s", r.Commodity)
	}
	if !r.CheapestPrice.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("cheapest price should be 140, got %s", r.CheapestPrice)
	}
	if r.CheapestSource != "Jumia" {
		t.Fatalf("cheapest source should be Jumia, got %s", r.CheapestSource)
	}
	if !r.AvgPrice.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("avg price should be 150, got %s", r.AvgPrice)
	}
	if !r.MaxPrice.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("max price should be 160, got %s", r.MaxPrice)
	}
	if r.SourceCount != 3 {
		t.Fatalf("source count should be 3, got %d", r.SourceCount)
	}
}

func TestRollupTieBreaksToFirstAfterSort(t *testing.T) {
	now := time.Now().UTC()
	observations := []storage.PriceObservation{
		obs("Milk 500ml", "Naivas", 60, now),
		obs("Milk 500ml", "Jumia", 60, now.Add(time.Minute)),
	}

	r := RollupCategory(observations)[0]
	// Stable ascending sort keeps the first-encountered observation on ties.
	if r.CheapestSource != "Naivas" {
		t.Fatalf("tie should break to first encountered, got %s", r.CheapestSource)
	}
}

func TestRollupIsDeterministic(t *testing.T) {
	now := time.Now().UTC()
	observations := []storage.PriceObservation{
		obs("Sugar 1kg", "Naivas", 150, now),
		obs("Maize Meal 2kg", "Jumia", 200, now),
		obs("Sugar 1kg", "Carrefour", 145, now),
		obs("Maize Meal 2kg", "Naivas", 210, now),
	}

	first := RollupCategory(observations)
	second := RollupCategory(observations)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated rollups over the same input must be identical")
	}
	if first[0].Commodity != "Maize Meal 2kg" || first[1].Commodity != "Sugar 1kg" {
		t.Fatalf("rollups should be sorted by commodity: %+v", first)
	}
}

func TestHistoryAlignsDatesWithGaps(t *testing.T) {
	day1 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	day3 := day1.AddDate(0, 0, 2)

	observations := []storage.PriceObservation{
		obs("Sugar 1kg", "Naivas", 150, day1),
		obs("Sugar 1kg", "Jumia", 140, day1),
		obs("Sugar 1kg", "Naivas", 152, day2),
		obs("Sugar 1kg", "Jumia", 139, day3),
	}

	series, err := History(observations, []string{"Naivas", "Jumia", "Carrefour"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantDates := []string{"2026-08-01", "2026-08-02", "2026-08-03"}
	if !reflect.DeepEqual(series.Dates, wantDates) {
		t.Fatalf("unexpected date axis: %v", series.Dates)
	}

	// Carrefour has no observations and must be absent entirely.
	if len(series.Sources) != 2 {
		t.Fatalf("expected 2 source series, got %d", len(series.Sources))
	}

	naivas := series.Sources[0]
	if naivas.Source != "Naivas" {
		t.Fatalf("unexpected source order: %s", naivas.Source)
	}
	if naivas.Prices[2] != nil {
		t.Fatal("Naivas has no observation on day 3; expected a nil gap, not interpolation")
	}
	if naivas.Prices[1] == nil || !naivas.Prices[1].Equal(decimal.NewFromInt(152)) {
		t.Fatalf("unexpected Naivas day-2 price: %v", naivas.Prices[1])
	}

	jumia := series.Sources[1]
	if jumia.Prices[1] != nil {
		t.Fatal("Jumia has no observation on day 2; expected a nil gap")
	}
	if jumia.Prices[2] == nil || !jumia.Prices[2].Equal(decimal.NewFromInt(139)) {
		t.Fatalf("unexpected Jumia day-3 price: %v", jumia.Prices[2])
	}
}

func TestHistoryNoData(t *testing.T) {
	if _, err := History(nil, nil); err != ErrNoData {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestLatestSnapshot(t *testing.T) {
	now := time.Now().UTC()
	latest := []storage.PriceObservation{
		obs("Bread 600g", "Naivas", 65, now),
		obs("Bread 600g", "Jumia", 55, now),
		obs("Bread 600g", "Carrefour", 72, now),
	}

	snap, err := LatestSnapshot(latest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.Min.Equal(decimal.NewFromInt(55)) || !snap.Max.Equal(decimal.NewFromInt(72)) {
		t.Fatalf("unexpected min/max: %s/%s", snap.Min, snap.Max)
	}
	if !snap.Avg.Equal(decimal.NewFromInt(64)) {
		t.Fatalf("unexpected avg: %s", snap.Avg)
	}
	if snap.Best.Source != "Jumia" {
		t.Fatalf("best offer should be Jumia, got %s", snap.Best.Source)
	}

	if _, err := LatestSnapshot(nil); err != ErrNoData {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestLatestBySource(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	observations := []storage.PriceObservation{
		obs("Sugar 1kg", "Naivas", 150, base),
		obs("Sugar 1kg", "Naivas", 148, base.AddDate(0, 0, 1)),
		obs("Sugar 1kg", "Jumia", 140, base),
	}

	latest := LatestBySource(observations)
	if len(latest) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(latest))
	}
	// Sorted by source name.
	if latest[0].Source != "Jumia" || latest[1].Source != "Naivas" {
		t.Fatalf("unexpected order: %s, %s", latest[0].Source, latest[1].Source)
	}
	if !latest[1].Price.Equal(decimal.NewFromInt(148)) {
		t.Fatalf("expected newest Naivas price 148, got %s", latest[1].Price)
	}
}
