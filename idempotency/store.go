package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/BillyJoe121/zenzspa-project-sub002/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the durable record table behind the coordinator. GetOrCreate and
// ReplacePendingIfStale must run inside Transact so the whole decision step
// for one storage key is serialized by a row-level lock; MarkCompleted and
// Delete run in their own short transactions after the handler has finished.
type Store interface {
	// Transact runs fn with every operation on the passed Store serialized
	// against concurrent decisions for the same keys.
	Transact(ctx context.Context, fn func(tx Store) error) error

	// GetOrCreate inserts rec if no record exists for rec.StorageKey and
	// reports created=true; otherwise it loads the existing record into rec.
	// Two racing callers never both observe created=true.
	GetOrCreate(ctx context.Context, rec *models.IdempotencyRecord) (created bool, err error)

	// ReplacePendingIfStale re-stamps LockedAt to now and clears residual
	// response fields when rec is PENDING for longer than timeout. Reports
	// whether the takeover happened.
	ReplacePendingIfStale(ctx context.Context, rec *models.IdempotencyRecord, timeout time.Duration, now time.Time) (bool, error)

	// MarkCompleted stores the response for replay. A missing record (purged
	// while the handler ran) is not an error.
	MarkCompleted(ctx context.Context, storageKey string, status int, body []byte) error

	// Delete removes the record so a failed attempt never blocks a retry.
	Delete(ctx context.Context, storageKey string) error
}

// Purger is the bulk-removal surface used by the retention Sweeper. It is
// separate from Store on purpose: the coordinator's four operations are the
// only per-request mutations.
type Purger interface {
	// PurgeExpired deletes COMPLETED records finished before completedBefore
	// and PENDING records locked before pendingBefore. Returns rows removed.
	PurgeExpired(ctx context.Context, completedBefore, pendingBefore time.Time) (int64, error)
}

// GormStore persists records through GORM/Postgres. Row serialization uses
// SELECT ... FOR UPDATE inside Transact's transaction.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transact(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) GetOrCreate(ctx context.Context, rec *models.IdempotencyRecord) (bool, error) {
	db := s.db.WithContext(ctx)

	var existing models.IdempotencyRecord
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("storage_key = ?", rec.StorageKey).
		First(&existing).Error
	if err == nil {
		*rec = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	// FOR UPDATE does not block on an absent row, so concurrent first
	// requests for the same key race on the insert. ON CONFLICT DO NOTHING
	// keeps the losers' transactions alive (a raw unique violation would
	// abort them); RowsAffected tells winner and losers apart.
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// Lost the insert race: load the winner's row. The FOR UPDATE read
	// blocks here until the winner's decision transaction commits.
	var again models.IdempotencyRecord
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("storage_key = ?", rec.StorageKey).
		First(&again).Error; err != nil {
		return false, err
	}
	*rec = again
	return false, nil
}

func (s *GormStore) ReplacePendingIfStale(ctx context.Context, rec *models.IdempotencyRecord, timeout time.Duration, now time.Time) (bool, error) {
	if rec.Status != models.IdempotencyPending || now.Sub(rec.LockedAt) <= timeout {
		return false, nil
	}

	res := s.db.WithContext(ctx).Model(&models.IdempotencyRecord{}).
		Where("storage_key = ? AND status = ?", rec.StorageKey, models.IdempotencyPending).
		Updates(map[string]any{
			"locked_at":       now,
			"response_status": 0,
			"response_body":   nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	rec.LockedAt = now
	rec.ResponseStatus = 0
	rec.ResponseBody = nil
	return true, nil
}

func (s *GormStore) MarkCompleted(ctx context.Context, storageKey string, status int, body []byte) error {
	now := time.Now().UTC()
	blob := make([]byte, len(body))
	copy(blob, body)

	// RowsAffected == 0 means the record was purged mid-flight; the caller
	// returns the live response either way.
	return s.db.WithContext(ctx).Model(&models.IdempotencyRecord{}).
		Where("storage_key = ?", storageKey).
		Updates(map[string]any{
			"status":          models.IdempotencyCompleted,
			"response_status": status,
			"response_body":   blob,
			"completed_at":    &now,
		}).Error
}

func (s *GormStore) Delete(ctx context.Context, storageKey string) error {
	return s.db.WithContext(ctx).
		Where("storage_key = ?", storageKey).
		Delete(&models.IdempotencyRecord{}).Error
}

func (s *GormStore) PurgeExpired(ctx context.Context, completedBefore, pendingBefore time.Time) (int64, error) {
	var total int64

	res := s.db.WithContext(ctx).
		Where("status = ? AND completed_at < ?", models.IdempotencyCompleted, completedBefore).
		Delete(&models.IdempotencyRecord{})
	if res.Error != nil {
		return total, res.Error
	}
	total += res.RowsAffected

	res = s.db.WithContext(ctx).
		Where("status = ? AND locked_at < ?", models.IdempotencyPending, pendingBefore).
		Delete(&models.IdempotencyRecord{})
	if res.Error != nil {
		return total, res.Error
	}
	total += res.RowsAffected

	return total, nil
}
