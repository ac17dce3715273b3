package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/source"
)

// PageSession is the rendering handle an adapter borrows for one navigation.
type PageSession interface {
	PageText(ctx context.Context, url string, settle time.Duration) (string, error)
}

// FetchError marks a per-(term, source) failure. Callers skip the pair and
// carry on; a single source must never abort its siblings.
type FetchError struct {
	Source string
	Term   string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q from %s: %v", e.Term, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options tune adapter behaviour shared across sources.
type Options struct {
	// Settle is the fixed wait after page load for client-side rendering.
	Settle time.Duration
}

// Adapter fetches rendered search-result text for one source.
type Adapter struct {
	src    source.Source
	settle time.Duration
	logger zerolog.Logger
}

// NewAdapter constructs an adapter bound to one source.
func NewAdapter(src source.Source, opts Options, logger zerolog.Logger) *Adapter {
	settle := opts.Settle
	if settle <= 0 {
		settle = 5 * time.Second
	}
	return &Adapter{
		src:    src,
		settle: settle,
		logger: logger.With().Str("component", "fetcher").Str("source", src.Name).Logger(),
	}
}

// NewAdapters builds one adapter per source, preserving order.
func NewAdapters(sources []source.Source, opts Options, logger zerolog.Logger) []*Adapter {
	adapters := make([]*Adapter, 0, len(sources))
	for _, src := range sources {
		adapters = append(adapters, NewAdapter(src, opts, logger))
	}
	return adapters
}

// Source returns the adapter's source configuration.
func (a *Adapter) Source() source.Source { return a.src }

// Fetch navigates the source's search page for the term and returns the
// rendered page text.
func (a *Adapter) Fetch(ctx context.Context, session PageSession, term string) (string, error) {
	url, err := a.src.SearchURL(term)
	if err != nil {
		return "", &FetchError{Source: a.src.Name, Term: term, Err: err}
	}

	a.logger.Debug().Str("url", url).Str("term", term).Msg("visiting search page")

	text, err := session.PageText(ctx, url, a.settle)
	if err != nil {
		return "", &FetchError{Source: a.src.Name, Term: term, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &FetchError{Source: a.src.Name, Term: term, Err: errors.New("empty page text")}
	}
	return text, nil
}
