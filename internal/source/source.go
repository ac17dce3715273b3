package source

import (
	"fmt"
	"strings"
)

// SpaceEncoding selects how spaces in a search term are written into the URL.
// The retailers are inconsistent: Naivas only understands literal '+', the
// others expect percent-encoding.
type SpaceEncoding string

const (
	EncodePlus    SpaceEncoding = "plus"
	EncodePercent SpaceEncoding = "percent"
)

const queryPlaceholder = "{query}"

// Source is the immutable configuration of one retailer.
type Source struct {
	Name          string
	URLTemplate   string
	SpaceEncoding SpaceEncoding
}

// SearchURL renders the search URL for a term using the source's encoding rule.
func (s Source) SearchURL(term string) (string, error) {
	if !strings.Contains(s.URLTemplate, queryPlaceholder) {
		return "", fmt.Errorf("source %q: url template missing %s placeholder", s.Name, queryPlaceholder)
	}

	term = strings.TrimSpace(term)
	var query string
	switch s.SpaceEncoding {
	case EncodePlus:
		query = strings.ReplaceAll(term, " ", "+")
	default:
		query = strings.ReplaceAll(term, " ", "%20")
	}

	return strings.ReplaceAll(s.URLTemplate, queryPlaceholder, query), nil
}

// Defaults returns the built-in retailer catalog.
func Defaults() []Source {
	return []Source{
		{Name: "Naivas", URLTemplate: "https://naivas.online/search?term={query}", SpaceEncoding: EncodePlus},
		{Name: "Jumia", URLTemplate: "https://www.jumia.co.ke/catalog/?q={query}", SpaceEncoding: EncodePercent},
		{Name: "Carrefour", URLTemplate: "https://www.carrefour.ke/mafken/en/search?keyword={query}", SpaceEncoding: EncodePercent},
	}
}

// Registry holds the configured sources in a stable iteration order.
type Registry struct {
	sources []Source
}

// NewRegistry validates the given sources. An empty slice falls back to the
// built-in catalog.
func NewRegistry(sources []Source) (*Registry, error) {
	if len(sources) == 0 {
		sources = Defaults()
	}

	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if strings.TrimSpace(src.Name) == "" {
			return nil, fmt.Errorf("source with empty name")
		}
		if !strings.Contains(src.URLTemplate, queryPlaceholder) {
			return nil, fmt.Errorf("source %q: url template must contain %s", src.Name, queryPlaceholder)
		}
		if _, dup := seen[src.Name]; dup {
			return nil, fmt.Errorf("duplicate source %q", src.Name)
		}
		seen[src.Name] = struct{}{}
	}

	return &Registry{sources: sources}, nil
}

// All returns every registered source in registration order.
func (r *Registry) All() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Get looks up a source by name.
func (r *Registry) Get(name string) (Source, bool) {
	for _, src := range r.sources {
		if strings.EqualFold(src.Name, name) {
			return src, true
		}
	}
	return Source{}, false
}

// Select resolves a subset of sources by name, preserving registry order.
// An empty selection means all sources.
func (r *Registry) Select(names []string) ([]Source, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[strings.ToLower(strings.TrimSpace(name))] = false
	}

	var out []Source
	for _, src := range r.sources {
		key := strings.ToLower(src.Name)
		if _, ok := wanted[key]; ok {
			wanted[key] = true
			out = append(out, src)
		}
	}

	for name, found := range wanted {
		if !found {
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	return out, nil
}
