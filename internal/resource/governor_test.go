package resource

import (
	"context"
	"testing"
	"time"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	g := New(1, 1, 1, Ceilings{}, nil)

	release, err := g.Acquire(context.Background(), KindTTS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()

	release2, err := g.Acquire(context.Background(), KindTTS)
	if err != nil {
		t.Fatalf("unexpected error on second acquire: %v", err)
	}
	release2()
}

func TestAcquireBlocksUntilTimeout(t *testing.T) {
	g := New(1, 1, 1, Ceilings{}, nil)

	release, err := g.Acquire(context.Background(), KindVisual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx, KindVisual)
	if err == nil {
		t.Fatal("expected exhaustion error, got nil")
	}
	if _, ok := err.(*ErrExhausted); !ok {
		t.Fatalf("expected *ErrExhausted, got %T", err)
	}
}

func TestTryAcquireNonBlocking(t *testing.T) {
	g := New(1, 1, 1, Ceilings{}, nil)

	release, ok := g.TryAcquire(KindJob)
	if !ok {
		t.Fatal("expected first TryAcquire to succeed")
	}
	defer release()

	if _, ok := g.TryAcquire(KindJob); ok {
		t.Fatal("expected second TryAcquire to fail while slot held")
	}
}

func TestAcquireUnknownKind(t *testing.T) {
	g := New(1, 1, 1, Ceilings{}, nil)
	if _, err := g.Acquire(context.Background(), Kind("bogus")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
