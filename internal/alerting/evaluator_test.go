package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricewatch/internal/storage"
)

type staticLookup struct {
	byPattern map[string]*storage.PriceObservation
	err       error
}

func (s *staticLookup) LatestMatching(ctx context.Context, pattern string) (*storage.PriceObservation, error) {
	if s.err != nil {
		return nil, s.err
	}
	for key, obs := range s.byPattern {
		if strings.Contains(strings.ToLower(key), strings.ToLower(pattern)) {
			return obs, nil
		}
	}
	return nil, nil
}

type recordingNotifier struct {
	notes []Notification
	err   error
}

func (r *recordingNotifier) Notify(ctx context.Context, note Notification) error {
	r.notes = append(r.notes, note)
	return r.err
}

func alert(pattern string, target int64) storage.Alert {
	return storage.Alert{
		ItemPattern: pattern,
		TargetPrice: decimal.NewFromInt(target),
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
}

func latestObs(price int64) *storage.PriceObservation {
	return &storage.PriceObservation{
		CommodityName: "Sugar 1kg",
		ProductName:   "Kabras Sugar 1kg",
		Source:        "Jumia",
		Price:         decimal.NewFromInt(price),
		ObservedAt:    time.Now().UTC(),
	}
}

func TestEvaluateTriggered(t *testing.T) {
	lookup := &staticLookup{byPattern: map[string]*storage.PriceObservation{"Sugar 1kg": latestObs(95)}}
	notifier := &recordingNotifier{}
	ev := NewEvaluator(lookup, notifier, zerolog.Nop())

	results, err := ev.Evaluate(context.Background(), []storage.Alert{alert("sugar", 100)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Status != StatusTriggered {
		t.Fatalf("expected triggered, got %+v", results)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.notes))
	}
	if notifier.notes[0].Source != "Jumia" {
		t.Fatalf("unexpected notification: %+v", notifier.notes[0])
	}
}

func TestEvaluatePending(t *testing.T) {
	lookup := &staticLookup{byPattern: map[string]*storage.PriceObservation{"Sugar 1kg": latestObs(105)}}
	notifier := &recordingNotifier{}
	ev := NewEvaluator(lookup, notifier, zerolog.Nop())

	results, err := ev.Evaluate(context.Background(), []storage.Alert{alert("sugar", 100)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Status != StatusPending {
		t.Fatalf("expected pending, got %s", results[0].Status)
	}
	if len(notifier.notes) != 0 {
		t.Fatal("pending alert must not notify")
	}
}

func TestEvaluateNoData(t *testing.T) {
	lookup := &staticLookup{byPattern: map[string]*storage.PriceObservation{}}
	ev := NewEvaluator(lookup, nil, zerolog.Nop())

	results, err := ev.Evaluate(context.Background(), []storage.Alert{alert("caviar", 100)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Status != StatusNoData {
		t.Fatalf("expected no data yet, got %s", results[0].Status)
	}
	if results[0].Latest != nil {
		t.Fatal("no-data result must not carry an observation")
	}
}

func TestEvaluateSkipsInactiveAlerts(t *testing.T) {
	lookup := &staticLookup{byPattern: map[string]*storage.PriceObservation{"Sugar 1kg": latestObs(95)}}
	ev := NewEvaluator(lookup, nil, zerolog.Nop())

	inactive := alert("sugar", 100)
	inactive.Active = false

	results, err := ev.Evaluate(context.Background(), []storage.Alert{inactive})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("inactive alerts must be skipped, got %+v", results)
	}
}

func TestEvaluateRepeatedTriggers(t *testing.T) {
	lookup := &staticLookup{byPattern: map[string]*storage.PriceObservation{"Sugar 1kg": latestObs(95)}}
	notifier := &recordingNotifier{}
	ev := NewEvaluator(lookup, notifier, zerolog.Nop())

	alerts := []storage.Alert{alert("sugar", 100)}
	for i := 0; i < 3; i++ {
		if _, err := ev.Evaluate(context.Background(), alerts); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// No auto-deactivation: the alert fires on every evaluation.
	if len(notifier.notes) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notifier.notes))
	}
}

func TestEvaluateSurfacesLookupErrors(t *testing.T) {
	lookup := &staticLookup{err: errors.New("connection refused")}
	ev := NewEvaluator(lookup, nil, zerolog.Nop())

	if _, err := ev.Evaluate(context.Background(), []storage.Alert{alert("sugar", 100)}); err == nil {
		t.Fatal("store read failures must surface")
	}
}

func TestEvaluateNotifierFailureDoesNotFail(t *testing.T) {
	lookup := &staticLookup{byPattern: map[string]*storage.PriceObservation{"Sugar 1kg": latestObs(95)}}
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	ev := NewEvaluator(lookup, notifier, zerolog.Nop())

	results, err := ev.Evaluate(context.Background(), []storage.Alert{alert("sugar", 100)})
	if err != nil {
		t.Fatalf("notification failure must not fail evaluation: %v", err)
	}
	if results[0].Status != StatusTriggered {
		t.Fatalf("expected triggered, got %s", results[0].Status)
	}
}
