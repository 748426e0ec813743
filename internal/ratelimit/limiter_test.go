package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireEnforcesInterval(t *testing.T) {
	interval := 20 * time.Millisecond
	l := New(interval)

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	elapsed := time.Since(start)

	// Burst of one: the first slot is free, the rest pay the interval.
	assert.GreaterOrEqual(t, elapsed, 3*interval)
}

func TestAcquireHonorsContext(t *testing.T) {
	l := New(time.Hour)
	require.NoError(t, l.Acquire(context.Background())) // free slot

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Acquire(ctx))
}

func TestEscalateAndRecover(t *testing.T) {
	base := 10 * time.Millisecond
	l := New(base)

	// Under the minimum sample count nothing escalates, whatever the rate.
	for i := 0; i < 5; i++ {
		l.Observe(true)
	}
	assert.False(t, l.Conservative(), "too few samples to escalate")

	// Fill past the minimum sample count with the failures still in window.
	for i := 0; i < 17; i++ {
		l.Observe(false)
	}
	require.True(t, l.Conservative(), "error rate above 5%% must escalate")
	assert.Equal(t, base*ConservativeFactor, l.Interval())

	// Flood with successes until the trailing rate drops under 2%.
	for i := 0; i < 260; i++ {
		l.Observe(false)
	}
	require.False(t, l.Conservative(), "rate below 2%% must recover")
	assert.Equal(t, base, l.Interval())
	assert.Less(t, l.ErrorRate(), RecoverThreshold)
}

func TestRateLimitSignalEscalatesImmediately(t *testing.T) {
	l := New(10 * time.Millisecond)

	// One provider 429 is enough, no sample minimum applies.
	l.ObserveRateLimited()
	assert.True(t, l.Conservative())
	assert.Equal(t, 4*10*time.Millisecond, l.Interval())
}

func TestErrorRateWindowIsTrailing(t *testing.T) {
	l := New(time.Millisecond)
	for i := 0; i < WindowSize; i++ {
		l.Observe(true)
	}
	assert.InDelta(t, 1.0, l.ErrorRate(), 1e-9)

	// A full window of successes pushes every failure out.
	for i := 0; i < WindowSize; i++ {
		l.Observe(false)
	}
	assert.InDelta(t, 0.0, l.ErrorRate(), 1e-9)
}
