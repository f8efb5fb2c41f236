package web

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_NilAndZeroRateNeverBlock(t *testing.T) {
	var nilLimiter *RateLimiter
	require.NoError(t, nilLimiter.Wait(context.Background()))

	disabled := NewRateLimiter(0, 0)
	require.NoError(t, disabled.Wait(context.Background()))
}

func TestRateLimiter_PacesRequests(t *testing.T) {
	l := NewRateLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	elapsed := time.Since(start)

	assert.Greater(t, elapsed, 5*time.Millisecond)
}

func TestRateLimiter_RespectsCancellation(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx)) // first call consumes the burst token immediately
	err := l.Wait(ctx)
	require.Error(t, err)
}
