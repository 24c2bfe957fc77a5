// Package lock serializes work on a single account across goroutines and,
// with redis, across instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotAcquired is returned when the lock could not be taken before the
// context ended or the retry budget ran out.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker runs fn while holding the named lock. The error from fn is
// returned unchanged.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

// Options configures lock behaviour.
type Options struct {
	// Expiry bounds how long a crashed holder can block others.
	Expiry      time.Duration
	Tries       int
	RetryDelay  time.Duration
	DriftFactor float64
}

func DefaultOptions() Options {
	return Options{
		Expiry:      10 * time.Second,
		Tries:       32,
		RetryDelay:  50 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

// AccountKey names the lock guarding one account's ledger.
func AccountKey(userID uint) string {
	return fmt.Sprintf("lock:account:%d", userID)
}
