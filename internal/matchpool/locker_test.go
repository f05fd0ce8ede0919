package matchpool

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client), mr
}

func TestRedisLockerSingleFlight(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "alice:2026-09-01", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second acquire while held must be refused
	ok, err = locker.Acquire(ctx, "alice:2026-09-01", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different key is independent
	ok, err = locker.Acquire(ctx, "bob:2026-09-01", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockerReleaseAllowsReacquire(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "alice:2026-09-01", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, "alice:2026-09-01"))

	ok, err = locker.Acquire(ctx, "alice:2026-09-01", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockerExpires(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "alice:2026-09-01", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A crashed generator's lock must not wedge the user forever
	mr.FastForward(2 * time.Minute)

	ok, err = locker.Acquire(ctx, "alice:2026-09-01", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
