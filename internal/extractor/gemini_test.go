package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func geminiReply(t *testing.T, text string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
			},
		})
	}
}

func newTestGemini(t *testing.T, baseURL string) *Gemini {
	t.Helper()
	g, err := NewGemini(GeminiOptions{APIKey: "test-key", BaseURL: baseURL, Timeout: time.Second}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	if _, err := NewGemini(GeminiOptions{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestGeminiParsesFencedJSON(t *testing.T) {
	answer := "```json\n{\"items\":[{\"product_name\":\"Kabras Sugar 1kg\",\"price\":150,\"unit\":\"1kg\",\"description\":\"white sugar\"}]}\n```"
	srv := httptest.NewServer(geminiReply(t, answer))
	defer srv.Close()

	g := newTestGemini(t, srv.URL)
	candidates, err := g.Extract(context.Background(), Request{Term: "Sugar 1kg", Source: "Naivas", PageText: "page", Mode: ModeBest})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].ProductName != "Kabras Sugar 1kg" {
		t.Fatalf("unexpected product: %s", candidates[0].ProductName)
	}
	if !candidates[0].Price.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected price: %s", candidates[0].Price)
	}
}

func TestGeminiMalformedOutputDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(geminiReply(t, "sorry, I could not find any prices"))
	defer srv.Close()

	g := newTestGemini(t, srv.URL)
	candidates, err := g.Extract(context.Background(), Request{Term: "milk", Source: "Jumia", PageText: "page", Mode: ModeMulti})
	if err != nil {
		t.Fatalf("malformed output must not propagate an error, got %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
}

func TestGeminiServerErrorDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := newTestGemini(t, srv.URL)
	candidates, err := g.Extract(context.Background(), Request{Term: "milk", Source: "Jumia", PageText: "page", Mode: ModeBest})
	if err != nil {
		t.Fatalf("transport failure must not propagate an error, got %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
}

func TestGeminiBestModeCapsToOne(t *testing.T) {
	answer := `{"items":[{"product_name":"A","price":10},{"product_name":"B","price":20}]}`
	srv := httptest.NewServer(geminiReply(t, answer))
	defer srv.Close()

	g := newTestGemini(t, srv.URL)
	candidates, err := g.Extract(context.Background(), Request{Term: "bread", Source: "Carrefour", PageText: "page", Mode: ModeBest})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ProductName != "A" {
		t.Fatalf("best mode should keep only the first candidate: %+v", candidates)
	}
}

func TestGeminiRequestShape(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		geminiReply(t, `{"items":[]}`)(w, r)
	}))
	defer srv.Close()

	g := newTestGemini(t, srv.URL)
	longText := strings.Repeat("x", defaultMaxPageChars+500)
	if _, err := g.Extract(context.Background(), Request{Term: "Sugar 1kg", Source: "Naivas", PageText: longText, Mode: ModeMulti, MaxMatches: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasSuffix(gotPath, "/models/"+defaultGeminiModel+":generateContent") {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header missing, got %q", gotKey)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 1 {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	prompt := gotBody.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "Naivas") || !strings.Contains(prompt, "Sugar 1kg") {
		t.Fatal("prompt should mention source and term")
	}
	if len(prompt) > defaultMaxPageChars+2000 {
		t.Fatalf("page text was not capped, prompt is %d chars", len(prompt))
	}
}
