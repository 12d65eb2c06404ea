package services

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSlotLockerExclusive(t *testing.T) {
	l := NewLocalSlotLocker()
	key := SlotLockKey(1, "2026-10-14")
	assert.Equal(t, "slot:1:2026-10-14", key)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)

	l.mu.Lock()
	assert.Empty(t, l.locks, "idle keys are dropped")
	l.mu.Unlock()
}

func TestLocalSlotLockerTimeout(t *testing.T) {
	l := NewLocalSlotLocker()
	release, err := l.Acquire(context.Background(), "slot:1:2026-10-14")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "slot:1:2026-10-14")
	assert.ErrorIs(t, err, apperrors.ErrBusy)

	other, err := l.Acquire(context.Background(), "slot:2:2026-10-14")
	require.NoError(t, err)
	other()

	release()
	release() // second call is a no-op
	again, err := l.Acquire(context.Background(), "slot:1:2026-10-14")
	require.NoError(t, err)
	again()
}

func TestRedisSlotLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	l := NewRedisSlotLocker(client, 5*time.Second)
	key := SlotLockKey(99, time.Now().Format(dateLayout))
	release, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, key)
	assert.ErrorIs(t, err, apperrors.ErrBusy)

	release()
	release2, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)
	release2()
}
