package idempotency

import (
	"context"
	"log"
	"time"
)

// Retention defaults: completed responses are replayable for a week,
// abandoned PENDING rows (crash without takeover demand) linger a day.
const (
	DefaultCompletedTTL  = 7 * 24 * time.Hour
	DefaultPendingTTL    = 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

// Sweeper is the retention job for old records. It runs outside the request
// path and is the only writer besides the coordinator's four operations.
type Sweeper struct {
	purger       Purger
	completedTTL time.Duration
	pendingTTL   time.Duration
	interval     time.Duration
	now          func() time.Time
}

func NewSweeper(purger Purger, completedTTL, pendingTTL, interval time.Duration) *Sweeper {
	if completedTTL <= 0 {
		completedTTL = DefaultCompletedTTL
	}
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		purger:       purger,
		completedTTL: completedTTL,
		pendingTTL:   pendingTTL,
		interval:     interval,
		now:          time.Now,
	}
}

// SweepOnce purges everything past its retention horizon.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	return s.purger.PurgeExpired(ctx, now.Add(-s.completedTTL), now.Add(-s.pendingTTL))
}

// Run sweeps on a fixed interval until ctx is cancelled. Meant to be started
// once from main as a goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				log.Printf("idempotency sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("idempotency sweep removed %d records", n)
			}
		}
	}
}
