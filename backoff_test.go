package namedmsg

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := NewExponentialBackoff()
	for _, want := range []time.Duration{1, 2, 4, 8, 16, 30, 30} {
		require.Equal(t, want*time.Second, backoff.NextDelay())
	}

	backoff.Reset()
	require.Equal(t, 1*time.Second, backoff.NextDelay())
}

func TestFixedDelay(t *testing.T) {
	delay := FixedDelay(250 * time.Millisecond)
	delay.Reset()
	require.Equal(t, 250*time.Millisecond, delay.NextDelay())
	require.Equal(t, 250*time.Millisecond, delay.NextDelay())
}

func TestExponentialBackoff_ZeroValue(t *testing.T) {
	var backoff ExponentialBackoff
	backoff.Reset()
	require.Equal(t, DefaultInitialBackoff, backoff.NextDelay())

	for range 100 {
		delay := backoff.NextDelay()
		require.Positive(t, delay)
		require.LessOrEqual(t, delay, DefaultMaxBackoff)
	}
	require.Equal(t, DefaultMaxBackoff, backoff.NextDelay())
}

func TestExponentialBackoff_LargeBounds(t *testing.T) {
	backoff := &ExponentialBackoff{Initial: time.Second, Max: time.Duration(math.MaxInt64)}

	prev := time.Duration(0)
	for range 100 {
		delay := backoff.NextDelay()
		require.GreaterOrEqual(t, delay, prev, "delays never shrink")
		prev = delay
	}
	require.Equal(t, time.Duration(math.MaxInt64), prev)
}
