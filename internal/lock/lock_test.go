package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertMutualExclusion(t *testing.T, l Locker) {
	t.Helper()

	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
		total   int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), AccountKey(7), func() error {
				n := atomic.AddInt32(&inside, 1)
				if n > atomic.LoadInt32(&maxSeen) {
					atomic.StoreInt32(&maxSeen, n)
				}
				atomic.AddInt32(&total, 1)
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
	assert.Equal(t, int32(20), atomic.LoadInt32(&total))
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker()
	assertMutualExclusion(t, l)
	assert.Equal(t, 0, l.size(), "idle keys are released")
}

func TestLocalLocker_ReturnsFnError(t *testing.T) {
	boom := errors.New("boom")
	err := NewLocalLocker().WithLock(context.Background(), "k", func() error { return boom })
	assert.Same(t, boom, err)
}

func TestLocalLocker_ContextCancelledWhileWaiting(t *testing.T) {
	l := NewLocalLocker()
	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = l.WithLock(context.Background(), "k", func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.WithLock(ctx, "k", func() error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotAcquired)
	close(release)
}

func TestLocalLocker_DistinctKeysDoNotBlock(t *testing.T) {
	l := NewLocalLocker()
	done := make(chan struct{})

	err := l.WithLock(context.Background(), AccountKey(1), func() error {
		go func() {
			_ = l.WithLock(context.Background(), AccountKey(2), func() error { return nil })
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-time.After(time.Second):
			return errors.New("second key blocked")
		}
	})
	require.NoError(t, err)
}

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts := DefaultOptions()
	opts.RetryDelay = 5 * time.Millisecond
	opts.Tries = 500
	l := NewRedisLocker(client, opts, nil)

	assertMutualExclusion(t, l)
	assert.False(t, mr.Exists(AccountKey(7)), "lock released after use")
}

func TestRedisLocker_NotAcquired(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set(AccountKey(9), "someone-else"))

	opts := DefaultOptions()
	opts.Tries = 2
	opts.RetryDelay = time.Millisecond
	l := NewRedisLocker(client, opts, nil)

	err := l.WithLock(context.Background(), AccountKey(9), func() error { return nil })
	assert.ErrorIs(t, err, ErrNotAcquired)
}
