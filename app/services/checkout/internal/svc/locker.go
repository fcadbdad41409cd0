package svc

import (
	"context"
	"strconv"

	"github.com/zeromicro/go-zero/core/stores/redis"
)

const lockExpireSeconds = 10

// OrderLocker serializes reconciliation work per order. Callback handling,
// cancellation, and expiry all take the lock before reading order state, so
// concurrent events for the same order apply one at a time.
type OrderLocker interface {
	Lock(ctx context.Context, orderId int64) (release func(), ok bool, err error)
}

type redisLocker struct {
	store *redis.Redis
}

func NewRedisLocker(store *redis.Redis) OrderLocker {
	return &redisLocker{store: store}
}

func (l *redisLocker) Lock(ctx context.Context, orderId int64) (func(), bool, error) {
	lock := redis.NewRedisLock(l.store, "checkout:order:lock:"+strconv.FormatInt(orderId, 10))
	lock.SetExpire(lockExpireSeconds)

	ok, err := lock.AcquireCtx(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		// Expiry reclaims the lock if the release is lost.
		_, _ = lock.Release()
	}, true, nil
}
