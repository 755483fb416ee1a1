package session

import (
	"context"
	"errors"
	"time"
)

// Revoker is the narrow slice of the revocation registry the tracker needs.
// Eviction revokes through this interface and nowhere else.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// Tracker maps users to their active sessions and enforces the concurrent
// session cap. It is a process-lifetime singleton constructed once at
// startup.
type Tracker struct {
	store       Store
	revoker     Revoker
	maxSessions int
}

// NewTracker wraps store. maxSessions <= 0 disables the cap.
func NewTracker(store Store, revoker Revoker, maxSessions int) *Tracker {
	return &Tracker{
		store:       store,
		revoker:     revoker,
		maxSessions: maxSessions,
	}
}

// Track registers sess as active. If this pushes the user over the cap, the
// oldest sessions (FIFO by registration order) are evicted and their refresh
// token identifiers revoked; the evicted sessions are returned. Sessions
// whose refresh token already expired are pruned silently and never count
// toward the cap.
func (t *Tracker) Track(ctx context.Context, sess *Session) ([]*Session, error) {
	if sess.UserID == "" || sess.SessionID == "" {
		return nil, errors.New("session missing user or session id")
	}

	if err := t.store.Append(ctx, sess); err != nil {
		return nil, err
	}

	active, err := t.store.List(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	live := 0
	for _, existing := range active {
		if existing.RefreshExpiresAt > now {
			live++
			continue
		}
		// Natural expiry; no revocation needed.
		_, _ = t.store.Remove(ctx, sess.UserID, existing.SessionID)
	}

	if t.maxSessions <= 0 || live <= t.maxSessions {
		return nil, nil
	}

	var evicted []*Session
	for _, oldest := range active {
		if live <= t.maxSessions {
			break
		}
		if oldest.RefreshExpiresAt <= now || oldest.SessionID == sess.SessionID {
			continue
		}

		removed, err := t.store.Remove(ctx, sess.UserID, oldest.SessionID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return evicted, err
		}
		if err := t.revoker.Revoke(ctx, removed.RefreshTokenID, time.Unix(removed.RefreshExpiresAt, 0)); err != nil {
			return evicted, err
		}

		evicted = append(evicted, removed)
		live--
	}

	return evicted, nil
}

// Untrack removes one session and returns it so the caller can revoke its
// tokens. ErrSessionNotFound is returned when the session is unknown.
func (t *Tracker) Untrack(ctx context.Context, userID, sessionID string) (*Session, error) {
	return t.store.Remove(ctx, userID, sessionID)
}

// RevokeAll ends every session of a user and blacklists both token
// identifiers of each. Used on password change and explicit
// "log out everywhere". It returns the number of sessions ended.
func (t *Tracker) RevokeAll(ctx context.Context, userID string) (int, error) {
	removed, err := t.store.RemoveAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	for _, sess := range removed {
		if err := t.revoker.Revoke(ctx, sess.RefreshTokenID, time.Unix(sess.RefreshExpiresAt, 0)); err != nil {
			return len(removed), err
		}
		if err := t.revoker.Revoke(ctx, sess.AccessTokenID, time.Unix(sess.AccessExpiresAt, 0)); err != nil {
			return len(removed), err
		}
	}

	return len(removed), nil
}

// ActiveCount reports how many sessions are tracked for a user, including
// any not yet pruned after natural expiry.
func (t *Tracker) ActiveCount(ctx context.Context, userID string) (int, error) {
	return t.store.Count(ctx, userID)
}

// ActiveSessions returns the tracked sessions for a user in registration
// order.
func (t *Tracker) ActiveSessions(ctx context.Context, userID string) ([]*Session, error) {
	return t.store.List(ctx, userID)
}
