package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures so callers can
// fail closed without matching on driver error strings.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Entry records one revoked token identifier. ExpiresAt is the expiry of the
// token itself and bounds how long the entry must be retained.
type Entry struct {
	TokenID   string
	RevokedAt time.Time
	ExpiresAt time.Time
}

// Store is the persistence contract behind the registry.
type Store interface {
	Add(ctx context.Context, entry Entry) error
	Contains(ctx context.Context, tokenID string) (bool, error)
	// Sweep removes entries whose token expired at or before now and
	// returns how many were dropped. Stores with native TTL support may
	// implement this as a no-op.
	Sweep(ctx context.Context, now time.Time) (int, error)
	// Len reports the current number of retained entries, where countable.
	Len(ctx context.Context) (int, error)
}

// MemoryStore keeps revocation entries in a mutex-guarded map. Reads take a
// read lock only.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Add(_ context.Context, entry Entry) error {
	if entry.TokenID == "" {
		return errors.New("empty token id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[entry.TokenID]; ok {
		// Re-revoking must never shorten retention.
		if existing.ExpiresAt.After(entry.ExpiresAt) {
			entry.ExpiresAt = existing.ExpiresAt
		}
		entry.RevokedAt = existing.RevokedAt
	}
	s.entries[entry.TokenID] = entry

	return nil
}

func (s *MemoryStore) Contains(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[tokenID]
	return ok, nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if !entry.ExpiresAt.After(now) {
			delete(s.entries, id)
			removed++
		}
	}

	return removed, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries), nil
}

// RedisStore keeps revocation entries as per-token keys whose TTL equals the
// remaining token lifetime, so retention and garbage collection fall out of
// Redis expiry. Sweep is therefore a no-op.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store namespaced under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rvk"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

func (s *RedisStore) Add(ctx context.Context, entry Entry) error {
	if entry.TokenID == "" {
		return errors.New("empty token id")
	}

	ttl := time.Until(entry.ExpiresAt)
	if ttl < time.Second {
		// The token is already (or almost) expired; keep the entry for a
		// short grace window covering verification leeway.
		ttl = time.Minute
	}

	if err := s.redis.Set(ctx, s.key(entry.TokenID), entry.RevokedAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	// Redis expires entries natively at the token's own expiry.
	return 0, nil
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	pattern := s.prefix + ":*"
	var (
		cursor uint64
		total  int
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return total, nil
}
