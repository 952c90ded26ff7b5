// Package lock provides Locker implementations backed by Redis or process memory.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	corelock "gaushala/internal/core/lock"
)

// RedisLocker implements corelock.Locker with redislock, so runs on different workers exclude each other.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker creates a locker on top of an existing redis client.
func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

// Acquire obtains the key without retrying.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (corelock.Lease, error) {
	lk, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, corelock.ErrNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain redis lock %s: %w", key, err)
	}
	return &redisLease{lock: lk}, nil
}

type redisLease struct {
	lock *redislock.Lock
}

func (r *redisLease) Refresh(ctx context.Context, ttl time.Duration) error {
	err := r.lock.Refresh(ctx, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return corelock.ErrNotHeld
	}
	if err != nil {
		return fmt.Errorf("refresh redis lock %s: %w", r.lock.Key(), err)
	}
	return nil
}

func (r *redisLease) Release(ctx context.Context) error {
	err := r.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return corelock.ErrNotHeld
	}
	if err != nil {
		return fmt.Errorf("release redis lock %s: %w", r.lock.Key(), err)
	}
	return nil
}

var _ corelock.Locker = (*RedisLocker)(nil)
