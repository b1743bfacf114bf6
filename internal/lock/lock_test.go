package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestLocalAcquireRelease(t *testing.T) {
	l := NewLocal(time.Minute)
	l.sleep = noSleep
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "branch:1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "branch:1")
	assert.ErrorIs(t, err, ErrLocked)

	// Other keys are independent.
	other, err := l.Acquire(ctx, "branch:2")
	require.NoError(t, err)
	other.Release()

	lease.Release()
	again, err := l.Acquire(ctx, "branch:1")
	require.NoError(t, err)
	again.Release()
}

func TestLocalLockExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocal(time.Minute)
	l.sleep = noSleep
	l.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	// Releasing the expired holder must not free the new one.
	stale.Release()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrLocked)

	fresh.Release()
}

func TestLocalAcquireHonoursCancellation(t *testing.T) {
	l := NewLocal(time.Minute)
	lease, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer lease.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewWithoutAddrIsLocal(t *testing.T) {
	l := New(context.Background(), "", 0, zap.NewNop())
	_, ok := l.(*Local)
	assert.True(t, ok)
}

func TestNewFallsBackWhenRedisUnreachable(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	l := New(context.Background(), "127.0.0.1:1", time.Minute, zap.New(core))
	_, ok := l.(*Local)
	assert.True(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("Failed to connect to Redis, using in-process run lock").Len())
}

func TestLocalExtend(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocal(time.Minute)
	l.sleep = noSleep
	l.now = func() time.Time { return now }
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	// Extending before expiry keeps the lock past the original TTL.
	now = now.Add(50 * time.Second)
	require.NoError(t, lease.Extend(ctx))
	now = now.Add(50 * time.Second)
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrLocked)

	// Once expired and taken over, the old lease cannot extend.
	now = now.Add(2 * time.Minute)
	other, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	assert.ErrorIs(t, lease.Extend(ctx), ErrLockLost)
	other.Release()
}

func TestRedisAcquireReportsConnectionError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	r := NewRedis(client, time.Minute, zap.NewNop())
	r.sleep = noSleep

	_, err := r.Acquire(context.Background(), "branch:1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), "acquiring lock")
}
