// Package idempotency guarantees a mutating operation executes its side
// effects at most once per client-supplied Idempotency-Key, across concurrent
// retries and across processes. Correctness rests on the store's row-level
// locking, never on in-process state, because duplicate requests may land on
// different hosts behind a load balancer.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/BillyJoe121/zenzspa-project-sub002/models"
)

// DefaultLockTimeout bounds how long a PENDING record blocks duplicates
// before another caller may take it over. Must exceed the slowest expected
// handler; takeover is the only timeout mechanism.
const DefaultLockTimeout = 60 * time.Second

// ErrStoreUnavailable wraps storage failures during the decision step. The
// coordinator never fails open: without a decision the handler does not run.
var ErrStoreUnavailable = errors.New("idempotency store unavailable")

// Outcome discriminates the coordinator's terminal decisions. Rejections are
// outcomes, not errors; only handler and store failures travel the error
// channel.
type Outcome int

const (
	// OutcomeExecuted: the handler ran and its live response was returned.
	OutcomeExecuted Outcome = iota
	// OutcomeReplayed: a completed response was returned without running the handler.
	OutcomeReplayed
	// OutcomeDuplicateInProgress: same key+fingerprint still PENDING inside the lock window.
	OutcomeDuplicateInProgress
	// OutcomeKeyMismatch: same key, different request fingerprint.
	OutcomeKeyMismatch
)

// Request identifies one guarded attempt. Endpoint is informational and
// stored for diagnostics only.
type Request struct {
	RawKey   string
	CallerID string // empty for unauthenticated callers
	Endpoint string
	Body     []byte
}

// Result carries the decision plus the response to send. Status/Body are set
// for Executed and Replayed outcomes only.
type Result struct {
	Outcome Outcome
	Status  int
	Body    []byte
}

// Handler is the wrapped operation. It runs with no lock held.
type Handler func() (status int, body []byte, err error)

// Coordinator decides execute / replay / reject for each keyed request. The
// row lock is held only across the decision step; the handler itself runs
// outside any transaction.
type Coordinator struct {
	store       Store
	lockTimeout time.Duration
	now         func() time.Time
}

func NewCoordinator(store Store, lockTimeout time.Duration) *Coordinator {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Coordinator{
		store:       store,
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

// Execute applies the decision algorithm for req and, when admitted, runs h
// exactly once. A request without a key bypasses deduplication entirely.
// Handler errors delete the record and propagate unchanged, so a failed
// attempt never blocks an identical retry.
func (c *Coordinator) Execute(ctx context.Context, req Request, h Handler) (Result, error) {
	if req.RawKey == "" {
		return c.run(ctx, "", h)
	}
	if err := ValidateKey(req.RawKey); err != nil {
		return Result{}, err
	}

	storageKey := StorageKey(req.CallerID, req.RawKey)
	fingerprint := Fingerprint(req.Body)
	now := c.now().UTC()

	var (
		decision Outcome
		cached   models.IdempotencyRecord
	)
	err := c.store.Transact(ctx, func(tx Store) error {
		rec := models.IdempotencyRecord{
			StorageKey:         storageKey,
			RawKey:             req.RawKey,
			OwnerID:            req.CallerID,
			Endpoint:           req.Endpoint,
			Status:             models.IdempotencyPending,
			RequestFingerprint: fingerprint,
			LockedAt:           now,
		}
		created, err := tx.GetOrCreate(ctx, &rec)
		if err != nil {
			return err
		}
		if created {
			decision = OutcomeExecuted
			return nil
		}
		if rec.RequestFingerprint != "" && rec.RequestFingerprint != fingerprint {
			decision = OutcomeKeyMismatch
			return nil
		}
		if rec.Status == models.IdempotencyCompleted && rec.ResponseBody != nil {
			decision = OutcomeReplayed
			cached = rec
			return nil
		}
		takenOver, err := tx.ReplacePendingIfStale(ctx, &rec, c.lockTimeout, now)
		if err != nil {
			return err
		}
		if takenOver {
			decision = OutcomeExecuted
		} else {
			decision = OutcomeDuplicateInProgress
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch decision {
	case OutcomeKeyMismatch:
		return Result{Outcome: OutcomeKeyMismatch}, nil
	case OutcomeDuplicateInProgress:
		return Result{Outcome: OutcomeDuplicateInProgress}, nil
	case OutcomeReplayed:
		return Result{
			Outcome: OutcomeReplayed,
			Status:  cached.ResponseStatus,
			Body:    cached.ResponseBody,
		}, nil
	}
	return c.run(ctx, storageKey, h)
}

// run invokes the handler with no lock held and settles the record.
// storageKey == "" means the request carried no key and nothing is stored.
func (c *Coordinator) run(ctx context.Context, storageKey string, h Handler) (Result, error) {
	status, body, err := h()
	if err != nil {
		if storageKey != "" {
			if delErr := c.store.Delete(ctx, storageKey); delErr != nil {
				log.Printf("idempotency: delete after handler failure for %q: %v", storageKey, delErr)
			}
		}
		return Result{}, err
	}
	if storageKey != "" {
		// Best-effort: the side effects already happened, so a failed
		// completion write must not fail the request. The record stays
		// PENDING and resolves via takeover or retention.
		if err := c.store.MarkCompleted(ctx, storageKey, status, body); err != nil {
			log.Printf("idempotency: completion write for %q: %v", storageKey, err)
		}
	}
	return Result{Outcome: OutcomeExecuted, Status: status, Body: body}, nil
}
