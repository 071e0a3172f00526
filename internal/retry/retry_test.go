// internal/retry/retry_test.go
package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-heal/internal/config"
)

func TestWithBackoff_SucceedsAfterFailures(t *testing.T) {
	var calls int
	var retried []int
	start := time.Now()

	v, err := WithBackoff(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	}, Options{
		MaxAttempts:  3,
		InitialDelay: 20 * time.Millisecond,
		OnRetry:      func(attempt int, err error) { retried = append(retried, attempt) },
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
	// 20ms then 40ms of backoff.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestWithBackoff_ExhaustionReturnsLastError(t *testing.T) {
	var calls int
	var retries int
	last := errors.New("attempt 3")

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return last
		}
		return errors.New("earlier")
	}, Options{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		OnRetry:      func(int, error) { retries++ },
	})

	assert.Same(t, last, err)
	assert.Equal(t, 3, calls, "no fourth attempt")
	assert.Equal(t, 2, retries, "no callback after the final attempt")
}

func TestWithBackoff_SingleAttempt(t *testing.T) {
	var calls int
	boom := errors.New("boom")
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	}, Options{MaxAttempts: 1, OnRetry: func(int, error) { t.Fatal("unexpected retry") }})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithBackoff_CapsDelay(t *testing.T) {
	b := exponential(10*time.Millisecond, 25*time.Millisecond, 2)
	var got []time.Duration
	for i := 0; i < 4; i++ {
		d, stop := b.Next()
		assert.False(t, stop)
		got = append(got, d)
	}
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond}, got)
}

func TestWithBackoff_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	errc := make(chan error, 1)
	go func() {
		errc <- Do(ctx, func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return errors.New("still failing")
		}, Options{MaxAttempts: 10, InitialDelay: time.Hour})
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry loop ignored cancellation")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{BackoffFactor: 0.5}.withDefaults()
	assert.Equal(t, DefaultMaxAttempts, o.MaxAttempts)
	assert.Equal(t, DefaultInitialDelay, o.InitialDelay)
	assert.Equal(t, DefaultMaxDelay, o.MaxDelay)
	assert.Equal(t, DefaultBackoffFactor, o.BackoffFactor)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig().Retry
	o := OptionsFromConfig(cfg)
	assert.Equal(t, 3, o.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, o.InitialDelay)
	assert.Equal(t, 5*time.Second, o.MaxDelay)
	assert.Equal(t, 2.0, o.BackoffFactor)
}

func TestFixed(t *testing.T) {
	var calls int
	err := Fixed(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("not yet")
		}
		return nil
	}, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	last := errors.New("always")
	err = Fixed(context.Background(), func(ctx context.Context) error {
		calls++
		return last
	}, 2, time.Millisecond)
	assert.Same(t, last, err)
	assert.Equal(t, 2, calls)
}

func TestPoll(t *testing.T) {
	var n int
	err := Poll(context.Background(), time.Millisecond, func(ctx context.Context) (bool, error) {
		n++
		return n == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	boom := errors.New("boom")
	err = Poll(context.Background(), time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, boom
	})
	assert.Same(t, boom, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = Poll(ctx, 5*time.Millisecond, func(ctx context.Context) (bool, error) { return false, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
