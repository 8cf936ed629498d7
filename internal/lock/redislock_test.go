package lock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paydesk/internal/lock"
)

func newLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, Prefix: "paydesk:lock:"}, mr
}

func TestExpiredLockCanBeRetaken(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	err := locker.TryWithLock(ctx, "Default", time.Second, func(ctx context.Context) error {
		mr.FastForward(2 * time.Second)
		require.False(t, mr.Exists("paydesk:lock:Default"))

		return locker.TryWithLock(ctx, "Default", time.Minute, func(context.Context) error {
			require.True(t, mr.Exists("paydesk:lock:Default"))
			return nil
		})
	})
	require.NoError(t, err)
}

func TestReleaseKeepsForeignToken(t *testing.T) {
	locker, mr := newLocker(t)

	err := locker.TryWithLock(context.Background(), "Default", time.Second, func(context.Context) error {
		require.NoError(t, mr.Set("paydesk:lock:Default", "someone-else"))
		return nil
	})
	require.NoError(t, err)
	got, err := mr.Get("paydesk:lock:Default")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestTryWithLockReportsHeld(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	err := locker.TryWithLock(ctx, "Default", time.Second, func(ctx context.Context) error {
		require.True(t, mr.Exists("paydesk:lock:Default"))
		inner := locker.TryWithLock(ctx, "Default", time.Second, func(context.Context) error {
			t.Fatal("nested holder must not run")
			return nil
		})
		require.ErrorIs(t, inner, lock.ErrHeld)
		return nil
	})
	require.NoError(t, err)
	require.False(t, mr.Exists("paydesk:lock:Default"), "lock released after callback")
}

func TestLockReleasedOnCallbackError(t *testing.T) {
	locker, mr := newLocker(t)
	boom := errors.New("boom")

	err := locker.TryWithLock(context.Background(), "Default", time.Second, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("paydesk:lock:Default"))
}
