package browser

import (
	"context"
	"testing"
	"time"
)

func testPool(size int) *Pool {
	p := &Pool{slots: make(chan *Session, size)}
	for i := 0; i < size; i++ {
		s := &Session{}
		p.all = append(p.all, s)
		p.slots <- s
	}
	return p
}

func TestAcquireIsExclusive(t *testing.T) {
	p := testPool(1)

	_, release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, _, err := p.Acquire(ctx); err == nil {
		t.Fatal("second acquire should block until release")
	}

	release()
	if _, _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := testPool(1)

	_, release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Double release must not put the session back twice.
	release()
	release()

	if _, release2, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else {
		defer release2()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, _, err := p.Acquire(ctx); err == nil {
		t.Fatal("pool should hold exactly one session")
	}
}

func TestAcquireHonoursContext(t *testing.T) {
	p := testPool(1)
	_, release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := p.Acquire(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
