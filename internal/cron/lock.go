package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 30 * time.Minute

// Lock keeps a maintenance cycle to one worker at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type redisStore interface {
	Claim(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseIfHolder(ctx context.Context, key, holder string) (bool, error)
}

// RedisLock is a SETNX lock whose value names the holder, so only the holder releases it.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	holder string
}

func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	holder := uuid.NewString()
	ok, err := l.client.Claim(ctx, l.key, holder, l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", l.key, err)
	}
	if ok {
		l.holder = holder
	}
	return ok, nil
}

// Release is a no-op once the key expired or moved to another holder.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.holder == "" {
		return nil
	}
	holder := l.holder
	l.holder = ""
	if _, err := l.client.ReleaseIfHolder(ctx, l.key, holder); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
