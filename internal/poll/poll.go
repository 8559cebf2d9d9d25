// Package poll waits for page state to settle by re-evaluating a condition
// at a constant interval until it holds or a deadline passes.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTimeout is returned when the condition never held within the timeout.
var ErrTimeout = errors.New("poll: condition not met before timeout")

var errPending = errors.New("poll: condition pending")

// Condition reports whether the awaited state has been reached. A non-nil
// error is treated as transient and retried unless wrapped with Stop.
type Condition func() (bool, error)

// Stop marks err as permanent so Until returns it immediately.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Options tunes a poll.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Until evaluates cond immediately and then every Interval until it returns
// true, returns a Stop error, the Timeout elapses, or ctx is done. On
// timeout the returned error wraps ErrTimeout and the last transient error.
func Until(ctx context.Context, opts Options, cond Condition) error {
	if opts.Interval <= 0 {
		opts.Interval = 50 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}

	pollCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var lastErr error
	attempts := 0
	op := func() error {
		attempts++
		ok, err := cond()
		if err != nil {
			var permanent *backoff.PermanentError
			if errors.As(err, &permanent) {
				return err
			}
			lastErr = err
			return err
		}
		lastErr = nil
		if !ok {
			return errPending
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(opts.Interval), pollCtx)
	err := backoff.Retry(op, policy)
	if err == nil {
		return nil
	}
	if parentErr := ctx.Err(); parentErr != nil {
		return parentErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errPending) || errors.Is(err, lastErr) {
		if lastErr != nil {
			return fmt.Errorf("%w after %s (%d attempts): %w", ErrTimeout, opts.Timeout, attempts, lastErr)
		}
		return fmt.Errorf("%w after %s (%d attempts)", ErrTimeout, opts.Timeout, attempts)
	}
	return err
}

// Sleep pauses for d unless ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
