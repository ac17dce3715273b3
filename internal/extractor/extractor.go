package extractor

import (
	"context"

	"github.com/shopspring/decimal"
)

// Mode selects how many candidates the model is asked for.
type Mode string

const (
	// ModeBest asks for the single best match; dashboard ingestion.
	ModeBest Mode = "best"
	// ModeMulti asks for the top relevance-ranked matches; live search.
	ModeMulti Mode = "multi"
)

// NotFoundName is the sentinel product name the model returns when a search
// page contains no match.
const NotFoundName = "N/A"

// DefaultMaxMatches caps multi-match extraction.
const DefaultMaxMatches = 5

// Request carries the page text and the search intent into extraction.
type Request struct {
	Term       string
	Source     string
	PageText   string
	Mode       Mode
	MaxMatches int
}

// Candidate is a transient pre-validation record produced by extraction. It
// is never persisted as-is; normalization decides what survives.
type Candidate struct {
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit"`
	Description string          `json:"description"`
}

// Extractor converts rendered page text plus search intent into structured
// candidates. Implementations are unreliable black boxes: callers must treat
// an empty slice as "nothing found" and must not depend on call ordering.
type Extractor interface {
	Extract(ctx context.Context, req Request) ([]Candidate, error)
}
