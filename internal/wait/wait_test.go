package wait

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestPollReturnsFirstSatisfyingValue(t *testing.T) {
	defer goleak.VerifyNone(t)

	calls := 0
	v, err := Poll(context.Background(), time.Millisecond, time.Second, func(context.Context) (int, bool, error) {
		calls++
		return calls, calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestPollProbesImmediately(t *testing.T) {
	start := time.Now()
	_, err := Poll(context.Background(), time.Hour, time.Hour, func(context.Context) (string, bool, error) {
		return "ready", true, nil
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	calls := 0
	_, err := Poll(context.Background(), 5*time.Millisecond, 30*time.Millisecond, func(context.Context) (int, bool, error) {
		calls++
		return 0, false, nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestPollZeroTimeoutProbesOnce(t *testing.T) {
	calls := 0
	_, err := Poll(context.Background(), time.Millisecond, 0, func(context.Context) (int, bool, error) {
		calls++
		return 0, false, nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, calls)
}

func TestPollStopsOnProbeError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Poll(context.Background(), time.Millisecond, time.Second, func(context.Context) (int, bool, error) {
		return 0, false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPollHonoursCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Until(ctx, 5*time.Millisecond, time.Hour, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepReturnsEarlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
