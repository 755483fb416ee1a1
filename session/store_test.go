package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) *RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisStore(rdb, "usess")
}

func makeSession(userID, sessionID string) *Session {
	now := time.Now()
	return &Session{
		SessionID:        sessionID,
		UserID:           userID,
		Audience:         "web",
		AccessTokenID:    "at-" + sessionID,
		RefreshTokenID:   "rt-" + sessionID,
		CreatedAt:        now.Unix(),
		AccessExpiresAt:  now.Add(15 * time.Minute).Unix(),
		RefreshExpiresAt: now.Add(time.Hour).Unix(),
	}
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  newRedisStoreTest(t),
	}
}

func TestStorePreservesInsertionOrder(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 0; i < 4; i++ {
				if err := store.Append(ctx, makeSession("u1", fmt.Sprintf("s%d", i))); err != nil {
					t.Fatalf("append: %v", err)
				}
			}

			listed, err := store.List(ctx, "u1")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(listed) != 4 {
				t.Fatalf("expected 4 sessions, got %d", len(listed))
			}
			for i, sess := range listed {
				if want := fmt.Sprintf("s%d", i); sess.SessionID != want {
					t.Fatalf("position %d: expected %s, got %s", i, want, sess.SessionID)
				}
			}
		})
	}
}

func TestStoreRemove(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.Append(ctx, makeSession("u1", "s0")); err != nil {
				t.Fatalf("append: %v", err)
			}
			if err := store.Append(ctx, makeSession("u1", "s1")); err != nil {
				t.Fatalf("append: %v", err)
			}

			removed, err := store.Remove(ctx, "u1", "s0")
			if err != nil {
				t.Fatalf("remove: %v", err)
			}
			if removed.SessionID != "s0" || removed.RefreshTokenID != "rt-s0" {
				t.Fatalf("removed wrong session: %+v", removed)
			}

			if _, err := store.Remove(ctx, "u1", "s0"); !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("expected ErrSessionNotFound on double remove, got %v", err)
			}

			n, err := store.Count(ctx, "u1")
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != 1 {
				t.Fatalf("expected 1 remaining session, got %d", n)
			}
		})
	}
}

func TestStoreRemoveAll(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				if err := store.Append(ctx, makeSession("u1", fmt.Sprintf("s%d", i))); err != nil {
					t.Fatalf("append: %v", err)
				}
			}
			if err := store.Append(ctx, makeSession("u2", "other")); err != nil {
				t.Fatalf("append: %v", err)
			}

			removed, err := store.RemoveAll(ctx, "u1")
			if err != nil {
				t.Fatalf("remove all: %v", err)
			}
			if len(removed) != 3 {
				t.Fatalf("expected 3 removed sessions, got %d", len(removed))
			}

			n, err := store.Count(ctx, "u1")
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != 0 {
				t.Fatalf("expected no remaining sessions, got %d", n)
			}

			// Other users are untouched.
			n, err = store.Count(ctx, "u2")
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != 1 {
				t.Fatalf("expected u2 session to survive, got %d", n)
			}
		})
	}
}
