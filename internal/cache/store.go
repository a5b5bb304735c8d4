// Package cache implements a best-effort, TTL-bounded cache in front of the
// remote store. Entries are versioned so a schema change forces a refetch, and
// every failure is downgraded to a miss: the cache is never the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SchemaVersion is bumped whenever the cached payload shape changes.
const SchemaVersion = 2

const keyNamespace = "meridian:cache:"

type envelope struct {
	Payload    json.RawMessage `json:"payload"`
	WrittenAt  time.Time       `json:"written_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
	Version    int             `json:"version"`
}

// Store wraps the Redis substrate with TTL and version checks.
type Store struct {
	client  *redis.Client
	version int
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore constructs a Store bound to the current schema version.
func NewStore(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{client: client, version: SchemaVersion, logger: logger, now: time.Now}
}

// WithNow overrides the store clock for testing.
func (s *Store) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Get loads a cached value. The second return is false on a miss: absent key,
// expired entry (evicted on the spot), version mismatch, or any substrate or
// decode failure.
func Get[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var zero T
	if s == nil || s.client == nil {
		return zero, false
	}
	raw, err := s.client.Get(ctx, keyNamespace+key).Bytes()
	if err != nil {
		if err != redis.Nil && s.logger != nil {
			s.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return zero, false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.evict(ctx, key)
		return zero, false
	}
	if env.Version != s.version {
		s.evict(ctx, key)
		return zero, false
	}
	if s.now().Sub(env.WrittenAt) > time.Duration(env.TTLSeconds)*time.Second {
		s.evict(ctx, key)
		return zero, false
	}
	var value T
	if err := json.Unmarshal(env.Payload, &value); err != nil {
		s.evict(ctx, key)
		return zero, false
	}
	return value, true
}

// Set stores a value under key for ttl. Always a full overwrite; errors are
// swallowed because caching is best-effort.
func Set[T any](ctx context.Context, s *Store, key string, value T, ttl time.Duration) {
	if s == nil || s.client == nil || ttl <= 0 {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("cache marshal failed", slog.String("key", key), slog.Any("error", err))
		}
		return
	}
	env := envelope{
		Payload:    payload,
		WrittenAt:  s.now(),
		TTLSeconds: int64(ttl / time.Second),
		Version:    s.version,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return
	}
	// The Redis expiry is a safety net slightly past the envelope TTL; the
	// envelope timestamp is what decides freshness.
	if err := s.client.Set(ctx, keyNamespace+key, raw, ttl+time.Minute).Err(); err != nil {
		if s.logger != nil {
			s.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
}

// Remove deletes a single cache key.
func (s *Store) Remove(ctx context.Context, key string) {
	s.evict(ctx, key)
}

// RemoveByPrefix deletes every cache key starting with prefix.
func (s *Store) RemoveByPrefix(ctx context.Context, prefix string) {
	s.scanDelete(ctx, keyNamespace+prefix+"*")
}

// ClearAll drops every entry owned by this store.
func (s *Store) ClearAll(ctx context.Context) {
	s.scanDelete(ctx, keyNamespace+"*")
}

func (s *Store) evict(ctx context.Context, key string) {
	if s == nil || s.client == nil {
		return
	}
	if err := s.client.Del(ctx, keyNamespace+key).Err(); err != nil && s.logger != nil {
		s.logger.Warn("cache evict failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Store) scanDelete(ctx context.Context, pattern string) {
	if s == nil || s.client == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("cache scan failed", slog.String("pattern", pattern), slog.Any("error", err))
			}
			return
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil && s.logger != nil {
				s.logger.Warn("cache delete failed", slog.Any("error", err))
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
