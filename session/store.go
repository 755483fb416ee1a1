package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned by Remove when the session is not tracked.
var ErrSessionNotFound = errors.New("session not found")

// Store is the persistence contract behind the tracker. Implementations
// must preserve insertion order per user; the tracker's FIFO eviction
// depends on it.
type Store interface {
	Append(ctx context.Context, sess *Session) error
	List(ctx context.Context, userID string) ([]*Session, error)
	Remove(ctx context.Context, userID, sessionID string) (*Session, error)
	RemoveAll(ctx context.Context, userID string) ([]*Session, error)
	Count(ctx context.Context, userID string) (int, error)
}

// RedisStore keeps one Redis list of encoded sessions per user. Lists keep
// insertion order natively; removal uses exact-value LREM, which is sound
// because Encode is deterministic.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store namespaced under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "usess"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + ":" + userID
}

func (s *RedisStore) Append(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	key := s.userKey(sess.UserID)
	ttl := time.Until(time.Unix(sess.RefreshExpiresAt, 0))
	if ttl < time.Second {
		ttl = time.Second
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		// The list must outlive its newest session; expiry is refreshed on
		// every append rather than tracked per element.
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

func (s *RedisStore) List(ctx context.Context, userID string) ([]*Session, error) {
	blobs, err := s.redis.LRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessions := make([]*Session, 0, len(blobs))
	for _, blob := range blobs {
		sess, decErr := Decode([]byte(blob))
		if decErr != nil {
			return nil, decErr
		}
		sessions = append(sessions, sess)
	}

	return sessions, nil
}

func (s *RedisStore) Remove(ctx context.Context, userID, sessionID string) (*Session, error) {
	key := s.userKey(userID)

	blobs, err := s.redis.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	for _, blob := range blobs {
		sess, decErr := Decode([]byte(blob))
		if decErr != nil {
			return nil, decErr
		}
		if sess.SessionID != sessionID {
			continue
		}
		if err := s.redis.LRem(ctx, key, 1, blob).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return sess, nil
	}

	return nil, ErrSessionNotFound
}

func (s *RedisStore) RemoveAll(ctx context.Context, userID string) ([]*Session, error) {
	key := s.userKey(userID)

	sessions, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sessions, nil
}

func (s *RedisStore) Count(ctx context.Context, userID string) (int, error) {
	n, err := s.redis.LLen(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}
