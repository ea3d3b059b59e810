package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	pkgredis "github.com/angelmondragon/pizzeria-backend/pkg/redis"
)

func TestRedisLockIsExclusiveUntilReleased(t *testing.T) {
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	client := pkgredis.NewFromRaw(raw)
	ctx := context.Background()

	cfg := config.CronConfig{Interval: 30 * time.Second}
	first, err := NewRedisLock(client, "pz:cron:lock:test", cfg)
	require.NoError(t, err)
	second, err := NewRedisLock(client, "pz:cron:lock:test", cfg)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// Releasing a lock it never owned leaves the holder in place.
	require.NoError(t, second.Release(ctx))
	require.True(t, mr.Exists("pz:cron:lock:test"))

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockExpiresAfterTwoIntervals(t *testing.T) {
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	ctx := context.Background()

	lock, err := NewRedisLock(pkgredis.NewFromRaw(raw), "pz:cron:lock:ttl", config.CronConfig{Interval: time.Minute})
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2*time.Minute, mr.TTL("pz:cron:lock:ttl"))

	mr.FastForward(2*time.Minute + time.Second)
	require.False(t, mr.Exists("pz:cron:lock:ttl"))
}

func TestLockTTLFallsBackToDefaultInterval(t *testing.T) {
	require.Equal(t, 2*defaultInterval, LockTTL(config.CronConfig{}))
	require.Equal(t, 20*time.Minute, LockTTL(config.CronConfig{Interval: 10 * time.Minute}))
}

func TestRedisLockReleaseAfterTakeoverKeepsNewHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	client := pkgredis.NewFromRaw(raw)
	ctx := context.Background()
	cfg := config.CronConfig{Interval: time.Minute}

	slow, err := NewRedisLock(client, "pz:cron:lock:takeover", cfg)
	require.NoError(t, err)
	ok, err := slow.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(LockTTL(cfg) + time.Second)
	next, err := NewRedisLock(client, "pz:cron:lock:takeover", cfg)
	require.NoError(t, err)
	ok, err = next.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, slow.Release(ctx))
	require.True(t, mr.Exists("pz:cron:lock:takeover"), "a lapsed holder must not delete its successor's lock")
}
