package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore is a Redis-backed Store. Values are JSON-encoded; a sorted set
// indexes keys by write time so List can return newest first.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisStore wraps an existing client. keyPrefix defaults to "pathflow:".
func NewRedisStore(client redis.UniversalClient, keyPrefix string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyPrefix == "" {
		keyPrefix = "pathflow:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "memory:",
		logger:    logger.With(zap.String("component", "memory_store_redis")),
	}
}

// dataKey returns the Redis key for an entry
func (s *RedisStore) dataKey(key string) string {
	return s.keyPrefix + "data:" + key
}

// indexKey returns the Redis key for the write-time index
func (s *RedisStore) indexKey() string {
	return s.keyPrefix + "index"
}

func (s *RedisStore) Save(ctx context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal memory %q: %w", key, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.dataKey(key), data, ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(time.Now().UnixNano()), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save memory %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (any, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	data, err := s.client.Get(ctx, s.dataKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("key %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load memory %q: %w", key, err)
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory %q: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.dataKey(key))
	pipe.ZRem(ctx, s.indexKey(), key)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) List(ctx context.Context, pattern string, limit int) ([]any, error) {
	keys, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list memory keys: %w", err)
	}

	out := make([]any, 0, len(keys))
	var stale []any
	for _, key := range keys {
		if pattern != "" && !matchWildcard(pattern, key) {
			continue
		}
		v, err := s.Load(ctx, key)
		if errors.Is(err, ErrNotFound) {
			// Expired by TTL; prune the index.
			stale = append(stale, key)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			s.logger.Warn("failed to prune memory index", zap.Error(err))
		}
	}
	return out, nil
}

// Ping checks if the store is healthy
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ Store = (*RedisStore)(nil)
