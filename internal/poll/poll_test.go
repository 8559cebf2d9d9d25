package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestUntil_ReturnsOnceConditionHolds(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	err := Until(context.Background(), Options{Timeout: time.Second, Interval: time.Millisecond}, func() (bool, error) {
		return calls.Add(1) >= 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestUntil_TimesOut(t *testing.T) {
	t.Parallel()
	start := time.Now()
	err := Until(context.Background(), Options{Timeout: 30 * time.Millisecond, Interval: 5 * time.Millisecond}, func() (bool, error) {
		return false, nil
	})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUntil_TimeoutCarriesLastTransientError(t *testing.T) {
	t.Parallel()
	transient := errors.New("element is not attached to the DOM")
	err := Until(context.Background(), Options{Timeout: 20 * time.Millisecond, Interval: 5 * time.Millisecond}, func() (bool, error) {
		return false, transient
	})
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, transient)
}

func TestUntil_StopIsReturnedImmediately(t *testing.T) {
	t.Parallel()
	fatal := errors.New("selector is malformed")
	var calls atomic.Int32
	err := Until(context.Background(), Options{Timeout: time.Second, Interval: time.Millisecond}, func() (bool, error) {
		calls.Add(1)
		return false, Stop(fatal)
	})
	require.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUntil_ParentCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Until(ctx, Options{Timeout: time.Second, Interval: time.Millisecond}, func() (bool, error) {
		return false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func testUntil_SucceedsOnNthAttempt(t *rapid.T) {
	n := rapid.Int32Range(1, 20).Draw(t, "n")
	var calls atomic.Int32
	err := Until(context.Background(), Options{Timeout: 5 * time.Second, Interval: time.Microsecond}, func() (bool, error) {
		return calls.Add(1) >= n, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != n {
		t.Fatalf("condition evaluated %d times, want %d", calls.Load(), n)
	}
}

func TestUntil_SucceedsOnNthAttempt(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testUntil_SucceedsOnNthAttempt)
}

func TestSleep_HonoursContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	require.NoError(t, Sleep(context.Background(), 0))
}
