package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 2 * time.Hour

// Lock coordinates exclusive cron cycles across worker instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	// Refresh extends a held lock; false means ownership was lost.
	Refresh(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// lockStore is the subset of pkg/redis.Client the lock needs.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
	CompareAndExpire(ctx context.Context, key, expected string, ttl time.Duration) (bool, error)
}

// RedisLock is a SETNX lock whose value is a per-acquire owner token.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	owner string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

func (l *RedisLock) Refresh(ctx context.Context) (bool, error) {
	if l.owner == "" {
		return false, nil
	}
	ok, err := l.store.CompareAndExpire(ctx, l.key, l.owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("refresh %s: %w", l.key, err)
	}
	if !ok {
		l.owner = ""
	}
	return ok, nil
}

// Release deletes the key only if this instance still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	if _, err := l.store.CompareAndDelete(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	l.owner = ""
	return nil
}
