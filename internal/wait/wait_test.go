package wait

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"
	testingclock "k8s.io/utils/clock/testing"
)

func TestUntil(t *testing.T) {
	t.Run("met-immediately", func(t *testing.T) {
		var calls atomic.Int32
		err := Until(t.Context(), clock.RealClock{}, Policy{Interval: time.Hour}, func(context.Context) (bool, error) {
			calls.Add(1)
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("sleeps-interval-between-attempts", func(t *testing.T) {
		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		fc := testingclock.NewFakeClock(start)
		var calls atomic.Int32
		done := make(chan error, 1)
		go func() {
			done <- Until(t.Context(), fc, Unbounded(time.Minute), func(context.Context) (bool, error) {
				return calls.Add(1) == 3, nil
			})
		}()
		for {
			select {
			case err := <-done:
				require.NoError(t, err)
				assert.Equal(t, int32(3), calls.Load())
				assert.Equal(t, start.Add(2*time.Minute), fc.Now())
				return
			default:
				if fc.HasWaiters() {
					fc.Step(time.Minute)
				}
				time.Sleep(time.Millisecond)
			}
		}
	})

	t.Run("attempts-exhausted", func(t *testing.T) {
		var calls atomic.Int32
		err := Until(t.Context(), clock.RealClock{}, Policy{Interval: time.Millisecond, MaxAttempts: 3}, func(context.Context) (bool, error) {
			calls.Add(1)
			return false, nil
		})
		require.ErrorIs(t, err, ErrAttemptsExhausted)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("deadline", func(t *testing.T) {
		err := Until(t.Context(), clock.RealClock{}, Policy{Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond}, func(context.Context) (bool, error) {
			return false, nil
		})
		require.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("condition-error-aborts", func(t *testing.T) {
		boom := fmt.Errorf("boom")
		var calls atomic.Int32
		err := Until(t.Context(), clock.RealClock{}, Unbounded(time.Millisecond), func(context.Context) (bool, error) {
			calls.Add(1)
			return false, boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("context-cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		var calls atomic.Int32
		err := Until(ctx, clock.RealClock{}, Unbounded(time.Millisecond), func(context.Context) (bool, error) {
			if calls.Add(1) == 2 {
				cancel()
			}
			return false, nil
		})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("attempt-timeout", func(t *testing.T) {
		err := Until(t.Context(), clock.RealClock{}, Policy{Interval: time.Millisecond, MaxAttempts: 1, AttemptTimeout: 10 * time.Millisecond}, func(ctx context.Context) (bool, error) {
			_, ok := ctx.Deadline()
			require.True(t, ok, "expected a per-attempt deadline")
			<-ctx.Done()
			return false, nil
		})
		require.ErrorIs(t, err, ErrAttemptsExhausted)
	})
}

func TestPolicyBounded(t *testing.T) {
	assert.False(t, Unbounded(time.Second).Bounded())
	assert.True(t, Policy{MaxAttempts: 1}.Bounded())
	assert.True(t, Policy{Timeout: time.Second}.Bounded())
}
