package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Locker hands out a lease per tenant so two runs never sync the same
// tenant at once.
type Locker interface {
	Obtain(ctx context.Context, tenantName string) (Lease, error)
	Close() error
}

type Lease interface {
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}

type nopLocker struct{}

type nopLease struct{}

func (nopLocker) Obtain(context.Context, string) (Lease, error) {
	return nopLease{}, nil
}

func (nopLocker) Close() error { return nil }

func (nopLease) Refresh(context.Context) error { return nil }

func (nopLease) Release(context.Context) error { return nil }

type redisLocker struct {
	rdb    *redis.Client
	client *redislock.Client
	prefix string
	ttl    time.Duration
}

type redisLease struct {
	lock *redislock.Lock
	key  string
	ttl  time.Duration
}

func newLocker(config lockConfig) (Locker, error) {
	if config.RedisAddress == "" {
		return nopLocker{}, nil
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = defaultLockPrefix
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisLocker{
		rdb:    rdb,
		client: redislock.New(rdb),
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (l *redisLocker) Obtain(ctx context.Context, tenantName string) (Lease, error) {
	key := fmt.Sprintf("%s:%s", l.prefix, tenantName)

	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrTenantLocked, key)
	} else if err != nil {
		return nil, fmt.Errorf("obtaining lock %s failed: %w", key, err)
	}

	return &redisLease{lock: lock, key: key, ttl: l.ttl}, nil
}

func (l *redisLocker) Close() error {
	return l.rdb.Close()
}

func (l *redisLease) Refresh(ctx context.Context) error {
	err := l.lock.Refresh(ctx, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("%w: lease %s expired", ErrTenantLocked, l.key)
	}

	return err
}

func (l *redisLease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}

	return err
}
