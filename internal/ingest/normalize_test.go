package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/extractor"
	"pricewatch/internal/storage"
)

func TestNormalizeValidCandidate(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	intent := Intent{Term: "Sugar 1kg", Category: "Food", Kind: storage.KindDashboard}
	candidate := extractor.Candidate{
		ProductName: " Kabras Sugar 1kg ",
		Price:       decimal.NewFromInt(150),
		Unit:        "1kg",
		Description: "white sugar",
	}

	obs, err := Normalize(candidate, intent, "Naivas", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.CommodityName != "Sugar 1kg" || obs.SearchTerm != "Sugar 1kg" {
		t.Fatalf("commodity/search term not stamped: %+v", obs)
	}
	if obs.ProductName != "Kabras Sugar 1kg" {
		t.Fatalf("product name not trimmed: %q", obs.ProductName)
	}
	if obs.Category != "Food" || obs.Source != "Naivas" || obs.Kind != storage.KindDashboard {
		t.Fatalf("unexpected observation: %+v", obs)
	}
	if !obs.ObservedAt.Equal(now) {
		t.Fatalf("observedAt not stamped: %s", obs.ObservedAt)
	}
}

func TestNormalizeDefaultsCategoryAndUnit(t *testing.T) {
	intent := Intent{Term: "vanilla ice cream", Kind: storage.KindLive}
	candidate := extractor.Candidate{ProductName: "Lyons Maid Vanilla", Price: decimal.NewFromInt(320)}

	obs, err := Normalize(candidate, intent, "Carrefour", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Category != "General" {
		t.Fatalf("expected default category, got %q", obs.Category)
	}
	if obs.Unit != "Unit" {
		t.Fatalf("expected default unit, got %q", obs.Unit)
	}
}

func TestNormalizeRejectsSentinelAndEmptyNames(t *testing.T) {
	intent := Intent{Term: "milk", Category: "Food", Kind: storage.KindDashboard}

	for _, name := range []string{"N/A", "n/a", "", "   "} {
		candidate := extractor.Candidate{ProductName: name, Price: decimal.NewFromInt(60)}
		_, err := Normalize(candidate, intent, "Naivas", time.Now())
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("name %q: expected ValidationError, got %v", name, err)
		}
	}
}

func TestNormalizeRejectsNonPositivePrices(t *testing.T) {
	intent := Intent{Term: "milk", Category: "Food", Kind: storage.KindDashboard}

	for _, price := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		candidate := extractor.Candidate{ProductName: "Brookside 500ml", Price: price}
		var verr *ValidationError
		if _, err := Normalize(candidate, intent, "Naivas", time.Now()); !errors.As(err, &verr) {
			t.Fatalf("price %s: expected ValidationError, got %v", price, err)
		}
	}
}

func TestDedupeCandidates(t *testing.T) {
	candidates := []extractor.Candidate{
		{ProductName: "Supaloaf 600g", Price: decimal.NewFromInt(65)},
		{ProductName: "supaloaf 600g", Price: decimal.NewFromInt(65)},
		{ProductName: "Supaloaf 600g", Price: decimal.NewFromInt(70)},
		{ProductName: "Festive 600g", Price: decimal.NewFromInt(65)},
	}

	out := dedupeCandidates(candidates)
	if len(out) != 3 {
		t.Fatalf("expected 3 distinct candidates, got %d", len(out))
	}
}
