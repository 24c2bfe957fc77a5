package cache

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StorageAdapter exposes a Store as fiber.Storage so middleware such as the
// rate limiter shares the injected cache instead of keeping its own map.
type StorageAdapter struct {
	store   Store
	prefix  string
	timeout time.Duration
}

var _ fiber.Storage = (*StorageAdapter)(nil)

func NewStorageAdapter(store Store, prefix string) *StorageAdapter {
	return &StorageAdapter{
		store:   store,
		prefix:  prefix,
		timeout: time.Second,
	}
}

func (a *StorageAdapter) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	data, found, err := a.store.GetBytes(ctx, a.prefix+key)
	if err != nil || !found {
		return nil, err
	}
	return data, nil
}

func (a *StorageAdapter) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return a.store.SetBytes(ctx, a.prefix+key, val, exp)
}

func (a *StorageAdapter) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return a.store.Delete(ctx, a.prefix+key)
}

// Reset clears the adapter's namespace when the backing store supports it.
func (a *StorageAdapter) Reset() error {
	type prefixDeleter interface {
		DeletePrefix(ctx context.Context, prefix string) error
	}
	pd, ok := a.store.(prefixDeleter)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return pd.DeletePrefix(ctx, a.prefix)
}

// Close is a no-op; the backing store is owned by the caller.
func (a *StorageAdapter) Close() error {
	return nil
}
