package revocation

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the background sweeper runs when the
// caller does not configure an interval.
const DefaultSweepInterval = time.Hour

// Registry is the process-wide set of revoked token identifiers. It is
// constructed once at startup and never replaced; all mutation goes through
// Revoke and Sweep.
type Registry struct {
	store    Store
	interval time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewRegistry wraps store. sweepInterval <= 0 selects DefaultSweepInterval.
func NewRegistry(store Store, sweepInterval time.Duration) *Registry {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Registry{
		store:    store,
		interval: sweepInterval,
		done:     make(chan struct{}),
	}
}

// Revoke records tokenID as invalid until expiresAt has passed. Revocation
// is immediately visible to subsequent IsRevoked calls on this process.
func (r *Registry) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	return r.store.Add(ctx, Entry{
		TokenID:   tokenID,
		RevokedAt: time.Now(),
		ExpiresAt: expiresAt,
	})
}

// IsRevoked reports whether tokenID has been revoked. A store error is
// returned so callers can fail closed.
func (r *Registry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return r.store.Contains(ctx, tokenID)
}

// Sweep removes entries whose token expired at or before now. Entries for
// not-yet-expired tokens are never removed, however old.
func (r *Registry) Sweep(ctx context.Context, now time.Time) (int, error) {
	return r.store.Sweep(ctx, now)
}

// Len reports the number of retained entries.
func (r *Registry) Len(ctx context.Context) (int, error) {
	return r.store.Len(ctx)
}

// Start launches the background sweeper. It runs independently of request
// handling and performs one pass per tick; each pass takes the store lock
// only for the duration of a single snapshot-and-delete. Start is
// idempotent.
func (r *Registry) Start() {
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.run()
	})
}

func (r *Registry) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = r.store.Sweep(context.Background(), time.Now())
		case <-r.done:
			return
		}
	}
}

// Close stops the background sweeper and waits for it to exit. Close is
// idempotent and safe to call even if Start never ran.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}
