// Package cache provides bounded key/value stores with per-entry expiry.
// Values are JSON encoded; both the redis and in-process implementations
// clamp every TTL to a configured maximum so nothing lives forever.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is the byte-level contract shared by the redis and in-process caches.
type Store interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// GetJSON decodes the value at key into dest. It reports false on a miss.
func GetJSON(ctx context.Context, s Store, key string, dest interface{}) (bool, error) {
	data, found, err := s.GetBytes(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// SetJSON encodes value and stores it under key for ttl.
func SetJSON(ctx context.Context, s Store, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.SetBytes(ctx, key, data, ttl)
}

// GenerateKey builds a namespaced cache key.
func GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

func boundTTL(ttl, defaultTTL, maxTTL time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if maxTTL > 0 && ttl > maxTTL {
		ttl = maxTTL
	}
	return ttl
}
