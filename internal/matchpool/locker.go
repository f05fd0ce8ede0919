package matchpool

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Locker is the single-flight guard for pool generation. It only suppresses
// duplicate work; correctness comes from the (user_id, pool_date) unique
// constraint in the store.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, "matchpool:lock:"+key, time.Now().Unix(), ttl).Result()
}

func (l *redisLocker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, "matchpool:lock:"+key).Err()
}

// noopLocker is used when redis is unavailable; generation then relies on the
// database constraint alone.
type noopLocker struct{}

func NewNoopLocker() Locker {
	return noopLocker{}
}

func (noopLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (noopLocker) Release(ctx context.Context, key string) error {
	return nil
}
