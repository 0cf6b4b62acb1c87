package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second, Multiplier: 2}

	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
	assert.Equal(t, 30*time.Second, p.Delay(10))
}

func TestRetryPolicy_DelayJitterBounded(t *testing.T) {
	p := RetryPolicy{InitialDelay: 10 * time.Second, MaxDelay: time.Minute, Multiplier: 2, Jitter: true}
	for i := 0; i < 50; i++ {
		d := p.Delay(1)
		assert.GreaterOrEqual(t, d, 9*time.Second)
		assert.LessOrEqual(t, d, 11*time.Second)
	}
}

type sleepRecorder struct {
	waits []time.Duration
	err   error
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return s.err
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	sleeper := &sleepRecorder{}
	p := RetryPolicy{MaxAttempts: 4, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2}

	calls := 0
	err := retry(context.Background(), p, sleeper.Sleep, func(error) bool { return true }, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.waits)
}

func TestRetry_GivesUp(t *testing.T) {
	sleeper := &sleepRecorder{}
	p := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second, Multiplier: 2}

	calls := 0
	err := retry(context.Background(), p, sleeper.Sleep, func(error) bool { return true }, nil, func() error {
		calls++
		return errors.New("down")
	})

	require.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)
	assert.Len(t, sleeper.waits, 2)
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	sleeper := &sleepRecorder{}
	permanent := errors.New("bad request")

	calls := 0
	err := retry(context.Background(), DefaultRetryPolicy(), sleeper.Sleep, func(err error) bool { return !errors.Is(err, permanent) }, nil, func() error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.waits)
}

func TestRetry_SleepInterrupted(t *testing.T) {
	sleeper := &sleepRecorder{err: context.Canceled}

	err := retry(context.Background(), DefaultRetryPolicy(), sleeper.Sleep, func(error) bool { return true }, nil, func() error {
		return errors.New("down")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
