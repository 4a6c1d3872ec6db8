// AngelaMos | 2026
// timeout.go

package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RaceTimeout runs fn and returns whichever settles first: fn's result or a
// timer of length d. fn receives a context that is cancelled when the timer
// wins, but RaceTimeout does not wait for fn to observe it.
func RaceTimeout[T any](
	ctx context.Context,
	d time.Duration,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	raceCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		v, err := fn(raceCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-raceCtx.Done():
		var zero T
		if errors.Is(raceCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return zero, raceCtx.Err()
	}
}
