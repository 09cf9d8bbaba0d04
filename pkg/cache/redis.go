package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sentinelsec/sentinel/pkg/detect"
)

// Store is a shared cache backend consulted before local computation
// and written through after. Get returns (nil, nil) on miss.
type Store interface {
	Get(ctx context.Context, fingerprint string) (*detect.ScanResult, error)
	Set(ctx context.Context, fingerprint string, res *detect.ScanResult, ttl time.Duration) error
}

const redisKeyPrefix = "sentinel:scan:"

// RedisStore shares scan results across pipeline instances via Redis.
// Errors never fail a scan; the caller degrades to in-process caching.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, fingerprint string) (*detect.ScanResult, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var res detect.ScanResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("redis entry decode: %w", err)
	}
	return &res, nil
}

func (s *RedisStore) Set(ctx context.Context, fingerprint string, res *detect.ScanResult, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("redis entry encode: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+fingerprint, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
