package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned by Poll when every attempt finished without a result.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy is a fixed interval, bounded attempt schedule.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// AttemptFunc returns done=true when it produced the final value. A non-nil error is reported
// to onErr and the attempt counts as not done.
type AttemptFunc[T any] func(ctx context.Context, attempt int) (value T, done bool, err error)

// Poll runs fn until it reports done, the attempts run out or ctx is cancelled. The interval is
// waited between attempts, never after the last one. When attempts run out, ErrExhausted is
// returned together with the zero value.
func Poll[T any](
	ctx context.Context,
	policy Policy,
	fn AttemptFunc[T],
	onErr func(attempt int, err error),
) (T, error) {
	var zero T
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		value, done, err := fn(ctx, attempt)
		if err != nil && onErr != nil {
			onErr(attempt, err)
		}

		if err == nil && done {
			return value, nil
		}

		if attempt == policy.MaxAttempts {
			break
		}

		timer := time.NewTimer(policy.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, ErrExhausted
}
