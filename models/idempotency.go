package models

import "time"

// IdempotencyRecord status values. COMPLETED is terminal; a failed attempt
// deletes its record instead of entering a failed state.
const (
	IdempotencyPending   = "pending"
	IdempotencyCompleted = "completed"
)

// IdempotencyRecord holds one in-flight or completed attempt per storage key.
// StorageKey is the caller-scoped lookup key (see idempotency.StorageKey);
// RawKey is kept as-received for diagnostics.
type IdempotencyRecord struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	StorageKey         string     `json:"-" gorm:"size:128;uniqueIndex"`
	RawKey             string     `json:"key" gorm:"size:128"`
	OwnerID            string     `json:"owner_id" gorm:"size:64;index"` // empty for unauthenticated callers
	Endpoint           string     `json:"endpoint" gorm:"size:255"`      // informational only
	Status             string     `json:"status" gorm:"size:16;not null"`
	RequestFingerprint string     `json:"request_fingerprint" gorm:"size:64"` // sha256 of the canonicalized body, "" when not canonicalizable
	ResponseStatus     int        `json:"response_status"`
	ResponseBody       []byte     `json:"-" gorm:"type:bytea"`
	LockedAt           time.Time  `json:"locked_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	CreatedAt          time.Time  `json:"created_at"`
}
