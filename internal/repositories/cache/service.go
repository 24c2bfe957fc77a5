package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxTTL is the longest any entry may live in the shared cache.
const MaxTTL = 24 * time.Hour

// CacheService is the redis-backed Store.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
	maxTTL time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    boundTTL(defaultTTL, MaxTTL, MaxTTL),
		maxTTL: MaxTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return SetJSON(ctx, s, key, value, ttl)
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return GetJSON(ctx, s, key, dest)
}

func (s *CacheService) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache value: %w", err)
	}
	return data, true, nil
}

func (s *CacheService) SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, data, boundTTL(ttl, s.ttl, s.maxTTL)).Err(); err != nil {
		return fmt.Errorf("failed to set cache value: %w", err)
	}
	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// DeletePrefix removes every key starting with prefix.
func (s *CacheService) DeletePrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return s.Delete(ctx, keys...)
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
