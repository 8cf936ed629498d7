package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paydesk/internal/resilience"
)

func TestBreakerTransitions(t *testing.T) {
	breaker := resilience.NewBreaker(2, 0.5, 50*time.Millisecond)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.False(t, breaker.Allow(ctx), "breaker should open after threshold exceeded")
	require.Equal(t, resilience.Open, breaker.State())

	time.Sleep(60 * time.Millisecond)
	require.True(t, breaker.Allow(ctx), "breaker should move to half-open after cool off")
	require.Equal(t, resilience.HalfOpen, breaker.State())
	breaker.Report(ctx, true)
	require.True(t, breaker.Allow(ctx), "breaker should close after successful probe")
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestBreakerStaysClosedBelowRatio(t *testing.T) {
	breaker := resilience.NewBreaker(4, 0.5, time.Second)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.True(t, breaker.Allow(ctx))
		breaker.Report(ctx, i%4 != 0)
	}
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestBreakerHalfOpenAllowsSingleProbe(t *testing.T) {
	breaker := resilience.NewBreaker(1, 1, 20*time.Millisecond)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())

	time.Sleep(30 * time.Millisecond)
	require.True(t, breaker.Allow(ctx))
	require.False(t, breaker.Allow(ctx), "only one probe may be in flight")

	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx))
}

func TestBreakerWindowForgetsOldFailures(t *testing.T) {
	breaker := resilience.NewBreaker(2, 0.75, time.Second)
	ctx := context.Background()

	breaker.Report(ctx, false)
	breaker.Report(ctx, true)
	for i := 0; i < 4; i++ {
		breaker.Report(ctx, true)
	}
	snap := breaker.Snapshot()
	require.Equal(t, resilience.Closed, snap.State)
	require.Equal(t, 4, snap.Total)
	require.Zero(t, snap.Failures)
	require.True(t, snap.RetryAt.IsZero())
}

func TestBreakerSnapshotWhileOpen(t *testing.T) {
	breaker := resilience.NewBreaker(2, 0.5, time.Minute)
	ctx := context.Background()

	breaker.Report(ctx, true)
	breaker.Report(ctx, false)

	snap := breaker.Snapshot()
	require.Equal(t, resilience.Open, snap.State)
	require.Zero(t, snap.Total, "window resets on transition")
	require.WithinDuration(t, time.Now().Add(time.Minute), snap.RetryAt, 5*time.Second)
}
