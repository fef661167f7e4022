package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/BillyJoe121/zenzspa-project-sub002/models"
)

func pendingRecord(key string, lockedAt time.Time) models.IdempotencyRecord {
	return models.IdempotencyRecord{
		StorageKey:         key,
		RawKey:             key,
		Status:             models.IdempotencyPending,
		RequestFingerprint: "f1",
		LockedAt:           lockedAt,
	}
}

func TestMemoryStore_GetOrCreate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	rec := pendingRecord("k1", now)
	created, err := s.GetOrCreate(ctx, &rec)
	if err != nil || !created {
		t.Fatalf("first GetOrCreate: created=%v err=%v", created, err)
	}

	again := pendingRecord("k1", now.Add(time.Second))
	again.RequestFingerprint = "f2"
	created, err = s.GetOrCreate(ctx, &again)
	if err != nil || created {
		t.Fatalf("second GetOrCreate: created=%v err=%v", created, err)
	}
	// The existing record is loaded, not overwritten.
	if again.RequestFingerprint != "f1" || !again.LockedAt.Equal(now) {
		t.Fatalf("existing record must be returned unchanged: %+v", again)
	}
}

func TestMemoryStore_ReplacePendingIfStale(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	t0 := time.Now().UTC()

	rec := pendingRecord("k1", t0)
	rec.ResponseStatus = 999 // residual garbage to be cleared
	if _, err := s.GetOrCreate(ctx, &rec); err != nil {
		t.Fatal(err)
	}

	// Fresh record: no takeover.
	taken, err := s.ReplacePendingIfStale(ctx, &rec, time.Minute, t0.Add(30*time.Second))
	if err != nil || taken {
		t.Fatalf("fresh pending must not be taken over: taken=%v err=%v", taken, err)
	}

	// Stale record: takeover re-stamps and clears residual response fields.
	now := t0.Add(2 * time.Minute)
	taken, err = s.ReplacePendingIfStale(ctx, &rec, time.Minute, now)
	if err != nil || !taken {
		t.Fatalf("stale pending must be taken over: taken=%v err=%v", taken, err)
	}
	stored, _ := s.Get("k1")
	if !stored.LockedAt.Equal(now) || stored.ResponseStatus != 0 || stored.ResponseBody != nil {
		t.Fatalf("takeover must re-stamp and clear: %+v", stored)
	}

	// Completed record: never taken over.
	if err := s.MarkCompleted(ctx, "k1", 201, []byte("done")); err != nil {
		t.Fatal(err)
	}
	stored, _ = s.Get("k1")
	taken, err = s.ReplacePendingIfStale(ctx, &stored, time.Minute, now.Add(time.Hour))
	if err != nil || taken {
		t.Fatalf("completed record must not be taken over: taken=%v err=%v", taken, err)
	}
}

func TestMemoryStore_MarkCompleted(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := pendingRecord("k1", time.Now().UTC())
	if _, err := s.GetOrCreate(ctx, &rec); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkCompleted(ctx, "k1", 201, []byte(`{"ok":true}`)); err != nil {
		t.Fatal(err)
	}
	stored, _ := s.Get("k1")
	if stored.Status != models.IdempotencyCompleted || stored.ResponseStatus != 201 ||
		stored.ResponseBody == nil || stored.CompletedAt == nil {
		t.Fatalf("completion fields not set: %+v", stored)
	}

	// Missing record is not an error.
	if err := s.MarkCompleted(ctx, "nope", 200, nil); err != nil {
		t.Fatalf("marking a purged record must not fail: %v", err)
	}
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	// Old completed, fresh completed, old pending, fresh pending.
	old := pendingRecord("completed-old", now.Add(-10*24*time.Hour))
	s.GetOrCreate(ctx, &old)
	s.MarkCompleted(ctx, "completed-old", 200, []byte("x"))
	// Backdate the completion stamp.
	s.mu.Lock()
	past := now.Add(-10 * 24 * time.Hour)
	s.records["completed-old"].CompletedAt = &past
	s.mu.Unlock()

	fresh := pendingRecord("completed-fresh", now)
	s.GetOrCreate(ctx, &fresh)
	s.MarkCompleted(ctx, "completed-fresh", 200, []byte("y"))

	stale := pendingRecord("pending-stale", now.Add(-48*time.Hour))
	s.GetOrCreate(ctx, &stale)

	live := pendingRecord("pending-live", now)
	s.GetOrCreate(ctx, &live)

	n, err := s.PurgeExpired(ctx, now.Add(-DefaultCompletedTTL), now.Add(-DefaultPendingTTL))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged records, got %d", n)
	}
	if _, ok := s.Get("completed-fresh"); !ok {
		t.Fatal("fresh completed record must survive")
	}
	if _, ok := s.Get("pending-live"); !ok {
		t.Fatal("live pending record must survive")
	}
}

func TestSweeper_SweepOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	stale := pendingRecord("pending-stale", now.Add(-48*time.Hour))
	s.GetOrCreate(ctx, &stale)
	live := pendingRecord("pending-live", now)
	s.GetOrCreate(ctx, &live)

	sw := NewSweeper(s, 0, 0, 0) // defaults
	n, err := sw.SweepOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept record, got %d", n)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 surviving record, got %d", s.Len())
	}
}
