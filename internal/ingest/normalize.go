package ingest

import (
	"fmt"
	"strings"
	"time"

	"pricewatch/internal/extractor"
	"pricewatch/internal/storage"
)

// Intent describes what one ingestion pass is looking for and how to file
// the results.
type Intent struct {
	Term     string
	Category string
	Kind     storage.ObservationKind
}

// ValidationError marks a candidate dropped during normalization. Only the
// offending candidate is lost; the rest of the fetch result survives.
type ValidationError struct {
	Reason      string
	ProductName string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid candidate %q: %s", e.ProductName, e.Reason)
}

// Normalize maps a raw extraction candidate onto a canonical observation.
// Candidates with the not-found sentinel, an empty name, or a non-positive
// price are rejected.
func Normalize(c extractor.Candidate, intent Intent, src string, observedAt time.Time) (storage.PriceObservation, error) {
	name := strings.TrimSpace(c.ProductName)
	if name == "" || strings.EqualFold(name, extractor.NotFoundName) {
		return storage.PriceObservation{}, &ValidationError{Reason: "no match reported", ProductName: c.ProductName}
	}
	if !c.Price.IsPositive() {
		return storage.PriceObservation{}, &ValidationError{Reason: "price must be positive", ProductName: name}
	}

	unit := strings.TrimSpace(c.Unit)
	if unit == "" {
		unit = "Unit"
	}
	category := strings.TrimSpace(intent.Category)
	if category == "" {
		category = "General"
	}

	return storage.PriceObservation{
		CommodityName: intent.Term,
		ProductName:   name,
		Source:        src,
		Category:      category,
		Unit:          unit,
		Price:         c.Price,
		Description:   strings.TrimSpace(c.Description),
		Kind:          intent.Kind,
		SearchTerm:    intent.Term,
		ObservedAt:    observedAt.UTC(),
	}, nil
}

// dedupeCandidates suppresses repeats of the same (product name, price) pair
// within one fetch result. Duplicates across runs stay; they are history.
func dedupeCandidates(candidates []extractor.Candidate) []extractor.Candidate {
	if len(candidates) < 2 {
		return candidates
	}

	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.ProductName)) + "|" + c.Price.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
