// internal/handoff/redis.go
package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/classkit/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces handoff keys in a shared Redis.
const DefaultKeyPrefix = "classkit:handoff:"

// RedisStore keeps handoff values in Redis with a TTL, so any server instance can load them.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// ConnectRedis opens a client for addr/db and pings it with a 5 second timeout.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, prefix: DefaultKeyPrefix}
}

func (s *RedisStore) Save(ctx context.Context, cfg models.SessionConfig) (string, error) {
	data, err := encode(cfg)
	if err != nil {
		return "", err
	}
	key := uuid.NewString()
	if err := s.rdb.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to SET handoff key: %w", err)
	}
	return key, nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (models.SessionConfig, error) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.SessionConfig{}, ErrNotFound
	}
	if err != nil {
		return models.SessionConfig{}, fmt.Errorf("failed to GET handoff key: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to DEL handoff key: %w", err)
	}
	return nil
}
