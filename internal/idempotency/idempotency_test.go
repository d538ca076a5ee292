package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()

	rec, err := s.Begin(ctx, "k1")
	if err != nil || rec != nil {
		t.Fatalf("First Begin should reserve, got %v, %v", rec, err)
	}

	if _, err := s.Begin(ctx, "k1"); !errors.Is(err, ErrInProgress) {
		t.Errorf("Expected ErrInProgress while pending, got %v", err)
	}

	if err := s.Complete(ctx, "k1", Record{Status: 201, Body: []byte(`{"id":"c1"}`)}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	rec, err = s.Begin(ctx, "k1")
	if err != nil {
		t.Fatalf("Begin after complete failed: %v", err)
	}
	if rec == nil || rec.Status != 201 || string(rec.Body) != `{"id":"c1"}` {
		t.Errorf("Expected stored record, got %+v", rec)
	}
}

func TestMemoryStore_AbortAllowsRetry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()

	s.Begin(ctx, "k1")
	s.Abort(ctx, "k1")

	rec, err := s.Begin(ctx, "k1")
	if err != nil || rec != nil {
		t.Errorf("Begin after abort should reserve again, got %v, %v", rec, err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Begin(ctx, "k1")
	s.Complete(ctx, "k1", Record{Status: 200, Body: []byte(`{}`)})

	now = now.Add(2 * time.Minute)
	if removed := s.Sweep(); removed != 1 {
		t.Errorf("Expected 1 expired entry, got %d", removed)
	}
	rec, err := s.Begin(ctx, "k1")
	if err != nil || rec != nil {
		t.Errorf("Expired key should be reserved anew, got %v, %v", rec, err)
	}
}
