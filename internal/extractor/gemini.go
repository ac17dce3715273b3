package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-flash"
	defaultMaxPageChars  = 25000
)

// GeminiOptions parameterise the Gemini extraction client.
type GeminiOptions struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	MaxPageChars int
}

// Gemini calls the generateContent endpoint to pull structured price data out
// of rendered page text. Every call is bounded by the configured timeout and
// fails closed: malformed model output or a transport failure yields an empty
// candidate list, never an error that could abort the surrounding run.
type Gemini struct {
	opts    GeminiOptions
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

var _ Extractor = (*Gemini)(nil)

// NewGemini validates credentials and constructs the client. A missing API
// key is a configuration error surfaced before any navigation happens.
func NewGemini(opts GeminiOptions, logger zerolog.Logger) (*Gemini, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("extractor.api_key is required")
	}
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}
	if opts.MaxPageChars <= 0 {
		opts.MaxPageChars = defaultMaxPageChars
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	return &Gemini{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "extractor").Str("model", opts.Model).Logger(),
	}, nil
}

// Extract prompts the model and parses its answer. All failure modes degrade
// to an empty candidate slice.
func (g *Gemini) Extract(ctx context.Context, req Request) ([]Candidate, error) {
	prompt := buildPrompt(req, g.opts.MaxPageChars)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.client.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.opts.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.opts.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.Warn().Err(err).Str("source", req.Source).Str("term", req.Term).Msg("extraction call failed")
		return nil, nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		g.logger.Warn().Err(err).Str("source", req.Source).Str("term", req.Term).Msg("read extraction response failed")
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn().Int("status", resp.StatusCode).
			Str("source", req.Source).Str("term", req.Term).
			Str("body", strings.TrimSpace(string(payload[:min(len(payload), 256)]))).
			Msg("extraction service returned non-OK status")
		return nil, nil
	}

	var genRes generateResponse
	if err := json.Unmarshal(payload, &genRes); err != nil {
		g.logger.Warn().Err(err).Str("source", req.Source).Str("term", req.Term).Msg("unparseable extraction response")
		return nil, nil
	}

	text := genRes.firstText()
	if text == "" {
		g.logger.Warn().Str("source", req.Source).Str("term", req.Term).Msg("extraction response has no text part")
		return nil, nil
	}

	candidates, err := parseCandidates(text)
	if err != nil {
		g.logger.Warn().Err(err).Str("source", req.Source).Str("term", req.Term).Msg("malformed model output")
		return nil, nil
	}

	if req.Mode == ModeBest && len(candidates) > 1 {
		candidates = candidates[:1]
	}

	return candidates, nil
}

// buildPrompt renders the extraction instructions. The page text is capped so
// oversized result pages cannot blow the model's input budget.
func buildPrompt(req Request, maxChars int) string {
	pageText := req.PageText
	if len(pageText) > maxChars {
		pageText = pageText[:maxChars]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I have text from the %s website search results for %q.\n", req.Source, req.Term)

	switch req.Mode {
	case ModeMulti:
		limit := req.MaxMatches
		if limit <= 0 {
			limit = DefaultMaxMatches
		}
		b.WriteString("Find ALL products that match the search query, specifically matching the name and quantity/unit if specified.\n\n")
		b.WriteString("Return ONLY a JSON object with a key \"items\" containing a list of matching products.\n")
		writeItemShape(&b)
		b.WriteString("RULES:\n")
		b.WriteString("1. Include multiple brands if they match the search.\n")
		b.WriteString("2. Prefer exact unit/size matches; only include a different size when no closer match exists.\n")
		b.WriteString("3. Ignore ads and clearly unrelated items.\n")
		fmt.Fprintf(&b, "4. Limit to the top %d most relevant matches.\n", limit)
		b.WriteString("5. If nothing matches, return an empty list for \"items\".\n")
	default:
		b.WriteString("Find the ONE product that best matches the search query, preferring an exact name and quantity/unit match.\n\n")
		b.WriteString("Return ONLY a JSON object with a key \"items\" containing a list with at most one product.\n")
		writeItemShape(&b)
		b.WriteString("RULES:\n")
		b.WriteString("1. Ignore ads and clearly unrelated items.\n")
		fmt.Fprintf(&b, "2. If nothing matches, use %q as the product_name.\n", NotFoundName)
	}

	b.WriteString("\nPAGE TEXT:\n")
	b.WriteString(pageText)
	return b.String()
}

func writeItemShape(b *strings.Builder) {
	b.WriteString("Each item must have:\n")
	b.WriteString("- \"product_name\": the full specific name (e.g. \"Festive Bread 600g\")\n")
	b.WriteString("- \"price\": the numeric price (e.g. 65)\n")
	b.WriteString("- \"unit\": the estimated unit (e.g. \"600g\")\n")
	b.WriteString("- \"description\": short description\n\n")
}

// parseCandidates unwraps the model's JSON answer, tolerating markdown code
// fences around the object.
func parseCandidates(text string) ([]Candidate, error) {
	cleaned := stripFences(text)

	var payload struct {
		Items []Candidate `json:"items"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return payload.Items, nil
}

func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) firstText() string {
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text
			}
		}
	}
	return ""
}
