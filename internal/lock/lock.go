// Package lock provides best-effort mutual exclusion for background sweeps
// and per-driver payouts across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder owns the key.
var ErrNotAcquired = errors.New("lock held by another process")

const keyPrefix = "lock:"

// Locker hands out expiring leases on named keys.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock. Release is safe to call once the TTL has elapsed.
type Lease interface {
	Release(ctx context.Context) error
}

// Only delete the key if it still carries our token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	rdb redis.Cmdable
}

func NewRedisLocker(rdb redis.Cmdable) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &redisLease{rdb: l.rdb, key: keyPrefix + key, token: token}, nil
}

type redisLease struct {
	rdb   redis.Cmdable
	key   string
	token string
}

func (r *redisLease) Release(ctx context.Context) error {
	if err := r.rdb.Eval(ctx, releaseScript, []string{r.key}, r.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", r.key, err)
	}
	return nil
}

// MemoryLocker is a process-local Locker for the memory store and tests.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	nowFn func() time.Time
}

type memoryEntry struct {
	token   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryEntry), nowFn: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, ErrNotAcquired
	}
	token := uuid.NewString()
	l.held[key] = memoryEntry{token: token, expires: now.Add(ttl)}
	return &memoryLease{l: l, key: key, token: token}, nil
}

type memoryLease struct {
	l     *MemoryLocker
	key   string
	token string
}

func (m *memoryLease) Release(context.Context) error {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	if cur, ok := m.l.held[m.key]; ok && cur.token == m.token {
		delete(m.l.held, m.key)
	}
	return nil
}
