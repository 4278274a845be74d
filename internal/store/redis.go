package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis server, letting several
// terminals share the same watermarks.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr and namespaces every key with prefix.
// A failed ping is logged rather than returned so the dashboard can start
// while Redis is still coming up.
func NewRedisStore(addr string, db int, prefix string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis state store at %s unreachable: %v", addr, err)
	}

	return &RedisStore{client: rdb, prefix: prefix}
}

// Get returns the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting key %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key without expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("setting key %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
