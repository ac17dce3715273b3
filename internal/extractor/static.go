package extractor

import "context"

// Static is a deterministic Extractor used by tests and alert simulation.
// Candidates are keyed by source and term; unknown keys yield no matches.
type Static struct {
	BySourceTerm map[string][]Candidate
}

var _ Extractor = (*Static)(nil)

// StaticKey builds the lookup key for a (source, term) pair.
func StaticKey(source, term string) string {
	return source + "|" + term
}

// Extract returns the canned candidates for the request, honouring the
// single-best-match contract.
func (s *Static) Extract(ctx context.Context, req Request) ([]Candidate, error) {
	candidates := s.BySourceTerm[StaticKey(req.Source, req.Term)]
	if req.Mode == ModeBest && len(candidates) > 1 {
		candidates = candidates[:1]
	}
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	return out, nil
}
