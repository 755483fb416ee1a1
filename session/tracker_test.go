package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// recordingRevoker captures revoked token identifiers in call order.
type recordingRevoker struct {
	mu      sync.Mutex
	revoked []string
}

func (r *recordingRevoker) Revoke(_ context.Context, tokenID string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked = append(r.revoked, tokenID)
	return nil
}

func (r *recordingRevoker) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.revoked...)
}

func TestTrackUnderCapEvictsNothing(t *testing.T) {
	revoker := &recordingRevoker{}
	tracker := NewTracker(NewMemoryStore(), revoker, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		evicted, err := tracker.Track(ctx, makeSession("u1", fmt.Sprintf("s%d", i)))
		if err != nil {
			t.Fatalf("track: %v", err)
		}
		if len(evicted) != 0 {
			t.Fatalf("expected no eviction under the cap, got %d", len(evicted))
		}
	}

	if len(revoker.ids()) != 0 {
		t.Fatalf("expected no revocations, got %v", revoker.ids())
	}
}

func TestTrackOverCapEvictsOldestAndRevokesItsRefreshToken(t *testing.T) {
	revoker := &recordingRevoker{}
	tracker := NewTracker(NewMemoryStore(), revoker, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := tracker.Track(ctx, makeSession("u1", fmt.Sprintf("s%d", i))); err != nil {
			t.Fatalf("track: %v", err)
		}
	}

	evicted, err := tracker.Track(ctx, makeSession("u1", "s5"))
	if err != nil {
		t.Fatalf("track sixth: %v", err)
	}
	if len(evicted) != 1 || evicted[0].SessionID != "s0" {
		t.Fatalf("expected exactly the oldest session s0 evicted, got %+v", evicted)
	}

	revoked := revoker.ids()
	if len(revoked) != 1 || revoked[0] != "rt-s0" {
		t.Fatalf("expected the evicted refresh token revoked, got %v", revoked)
	}

	remaining, err := tracker.ActiveSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("active sessions: %v", err)
	}
	if len(remaining) != 5 {
		t.Fatalf("expected 5 remaining sessions, got %d", len(remaining))
	}
	if remaining[0].SessionID != "s1" || remaining[4].SessionID != "s5" {
		t.Fatalf("unexpected remaining order: %+v", remaining)
	}
}

func TestTrackCapOneReplacesSession(t *testing.T) {
	revoker := &recordingRevoker{}
	tracker := NewTracker(NewMemoryStore(), revoker, 1)
	ctx := context.Background()

	if _, err := tracker.Track(ctx, makeSession("u1", "first")); err != nil {
		t.Fatalf("track: %v", err)
	}

	evicted, err := tracker.Track(ctx, makeSession("u1", "second"))
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if len(evicted) != 1 || evicted[0].SessionID != "first" {
		t.Fatalf("expected first session evicted, got %+v", evicted)
	}
	if ids := revoker.ids(); len(ids) != 1 || ids[0] != "rt-first" {
		t.Fatalf("expected rt-first revoked, got %v", ids)
	}
}

func TestTrackZeroCapDisablesEviction(t *testing.T) {
	revoker := &recordingRevoker{}
	tracker := NewTracker(NewMemoryStore(), revoker, 0)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		evicted, err := tracker.Track(ctx, makeSession("u1", fmt.Sprintf("s%d", i)))
		if err != nil {
			t.Fatalf("track: %v", err)
		}
		if len(evicted) != 0 {
			t.Fatal("expected no eviction with the cap disabled")
		}
	}
}

func TestTrackPrunesExpiredSessionsWithoutRevocation(t *testing.T) {
	revoker := &recordingRevoker{}
	tracker := NewTracker(NewMemoryStore(), revoker, 2)
	ctx := context.Background()

	stale := makeSession("u1", "stale")
	stale.RefreshExpiresAt = time.Now().Add(-time.Minute).Unix()
	if _, err := tracker.Track(ctx, stale); err != nil {
		t.Fatalf("track stale: %v", err)
	}

	for _, id := range []string{"a", "b"} {
		if _, err := tracker.Track(ctx, makeSession("u1", id)); err != nil {
			t.Fatalf("track %s: %v", id, err)
		}
	}

	// The stale session was pruned, so two live sessions fit the cap and
	// natural expiry never triggers a revocation.
	if len(revoker.ids()) != 0 {
		t.Fatalf("expected no revocations, got %v", revoker.ids())
	}

	remaining, err := tracker.ActiveSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("active sessions: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected the stale session pruned, got %+v", remaining)
	}
}

func TestRevokeAllRevokesBothTokenIDs(t *testing.T) {
	revoker := &recordingRevoker{}
	tracker := NewTracker(NewMemoryStore(), revoker, 5)
	ctx := context.Background()

	for _, id := range []string{"s0", "s1"} {
		if _, err := tracker.Track(ctx, makeSession("u1", id)); err != nil {
			t.Fatalf("track: %v", err)
		}
	}

	n, err := tracker.RevokeAll(ctx, "u1")
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 sessions ended, got %d", n)
	}

	want := map[string]bool{"rt-s0": true, "at-s0": true, "rt-s1": true, "at-s1": true}
	got := revoker.ids()
	if len(got) != len(want) {
		t.Fatalf("expected %d revocations, got %v", len(want), got)
	}
	for _, id := range got {
		if !want[id] {
			t.Fatalf("unexpected revoked id %s", id)
		}
	}

	count, err := tracker.ActiveCount(ctx, "u1")
	if err != nil {
		t.Fatalf("active count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no active sessions, got %d", count)
	}
}

func TestUntrackReturnsRemovedSession(t *testing.T) {
	revoker := &recordingRevoker{}
	tracker := NewTracker(NewMemoryStore(), revoker, 5)
	ctx := context.Background()

	if _, err := tracker.Track(ctx, makeSession("u1", "s0")); err != nil {
		t.Fatalf("track: %v", err)
	}

	removed, err := tracker.Untrack(ctx, "u1", "s0")
	if err != nil {
		t.Fatalf("untrack: %v", err)
	}
	if removed.RefreshTokenID != "rt-s0" {
		t.Fatalf("unexpected removed session: %+v", removed)
	}

	// Untrack itself never revokes; that is the caller's decision.
	if len(revoker.ids()) != 0 {
		t.Fatalf("expected no revocations, got %v", revoker.ids())
	}
}
