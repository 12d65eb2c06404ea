package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlotLocker provides the per slot-day serialization point of admission.
// Acquire blocks until the key is held or ctx ends; an expired ctx yields ErrBusy.
type SlotLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func SlotLockKey(slotID uint, calendarDate string) string {
	return fmt.Sprintf("slot:%d:%s", slotID, calendarDate)
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// LocalSlotLocker serializes admissions inside one process.
type LocalSlotLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

func NewLocalSlotLocker() *LocalSlotLocker {
	return &LocalSlotLocker{locks: make(map[string]*localLock)}
}

func (l *LocalSlotLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-lk.ch
				l.unref(key, lk)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, lk)
		return nil, fmt.Errorf("%w: lock %s: %v", apperrors.ErrBusy, key, ctx.Err())
	}
}

// unref drops idle entries so the map does not grow with every slot-day seen.
func (l *LocalSlotLocker) unref(key string, lk *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSlotLocker serializes admissions across instances sharing one Redis.
// The TTL bounds how long a crashed holder can keep a slot-day blocked.
type RedisSlotLocker struct {
	client     *redis.Client
	ttl        time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewRedisSlotLocker(client *redis.Client, ttl time.Duration) *RedisSlotLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisSlotLocker{
		client:     client,
		ttl:        ttl,
		minBackoff: 5 * time.Millisecond,
		maxBackoff: 100 * time.Millisecond,
	}
}

func (r *RedisSlotLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := "lock:" + key
	owner := uuid.NewString()
	backoff := r.minBackoff

	for {
		ok, err := r.client.SetNX(ctx, redisKey, owner, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: lock %s: %v", apperrors.ErrBusy, key, err)
		}
		if ok {
			return func() { r.release(redisKey, owner) }, nil
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: lock %s: %v", apperrors.ErrBusy, key, ctx.Err())
		case <-timer.C:
		}
		if backoff *= 2; backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}
}

func (r *RedisSlotLocker) release(redisKey, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, r.client, []string{redisKey}, owner).Err(); err != nil {
		utils.ErrorLogger.WithField("key", redisKey).Errorf("slot lock release: %v", err)
	}
}
