package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/BillyJoe121/zenzspa-project-sub002/models"
)

// MemoryStore is a development/test implementation. Transact holds one mutex
// for the whole decision step, which gives the same serialization the
// Postgres row lock provides (coarser, but correct).
type MemoryStore struct {
	mu      sync.Mutex
	nextID  uint
	records map[string]*models.IdempotencyRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.IdempotencyRecord)}
}

func (s *MemoryStore) Transact(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn((*memoryOps)(s))
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, rec *models.IdempotencyRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memoryOps)(s).GetOrCreate(ctx, rec)
}

func (s *MemoryStore) ReplacePendingIfStale(ctx context.Context, rec *models.IdempotencyRecord, timeout time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memoryOps)(s).ReplacePendingIfStale(ctx, rec, timeout, now)
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, storageKey string, status int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memoryOps)(s).MarkCompleted(ctx, storageKey, status, body)
}

func (s *MemoryStore) Delete(ctx context.Context, storageKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memoryOps)(s).Delete(ctx, storageKey)
}

func (s *MemoryStore) PurgeExpired(ctx context.Context, completedBefore, pendingBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, rec := range s.records {
		switch rec.Status {
		case models.IdempotencyCompleted:
			if rec.CompletedAt != nil && rec.CompletedAt.Before(completedBefore) {
				delete(s.records, key)
				n++
			}
		case models.IdempotencyPending:
			if rec.LockedAt.Before(pendingBefore) {
				delete(s.records, key)
				n++
			}
		}
	}
	return n, nil
}

// Get returns a copy of the record for storageKey, for tests and tooling.
func (s *MemoryStore) Get(storageKey string) (models.IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[storageKey]
	if !ok {
		return models.IdempotencyRecord{}, false
	}
	return *rec, true
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// memoryOps is MemoryStore without locking, used inside Transact where the
// mutex is already held.
type memoryOps MemoryStore

func (s *memoryOps) Transact(ctx context.Context, fn func(tx Store) error) error {
	return fn(s)
}

func (s *memoryOps) GetOrCreate(ctx context.Context, rec *models.IdempotencyRecord) (bool, error) {
	if existing, ok := s.records[rec.StorageKey]; ok {
		*rec = *existing
		return false, nil
	}
	s.nextID++
	rec.ID = s.nextID
	rec.CreatedAt = rec.LockedAt
	stored := *rec
	s.records[rec.StorageKey] = &stored
	return true, nil
}

func (s *memoryOps) ReplacePendingIfStale(ctx context.Context, rec *models.IdempotencyRecord, timeout time.Duration, now time.Time) (bool, error) {
	stored, ok := s.records[rec.StorageKey]
	if !ok || stored.Status != models.IdempotencyPending {
		return false, nil
	}
	if now.Sub(stored.LockedAt) <= timeout {
		return false, nil
	}
	stored.LockedAt = now
	stored.ResponseStatus = 0
	stored.ResponseBody = nil
	*rec = *stored
	return true, nil
}

func (s *memoryOps) MarkCompleted(ctx context.Context, storageKey string, status int, body []byte) error {
	stored, ok := s.records[storageKey]
	if !ok {
		return nil // purged mid-flight
	}
	now := time.Now().UTC()
	blob := make([]byte, len(body))
	copy(blob, body)
	stored.Status = models.IdempotencyCompleted
	stored.ResponseStatus = status
	stored.ResponseBody = blob
	stored.CompletedAt = &now
	return nil
}

func (s *memoryOps) Delete(ctx context.Context, storageKey string) error {
	delete(s.records, storageKey)
	return nil
}
