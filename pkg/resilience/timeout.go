// Package resilience bounds calls with a deadline and runs a single fallback.
// Calls are attempted once; there is no retry helper.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout runs fn under a derived context cancelled after timeout and
// returns its result, or context.DeadlineExceeded if fn has not returned by
// then. fn keeps running in the background after a timeout; its result is
// dropped. A non-positive timeout runs fn directly.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- outcome{v, err}
	}()

	var zero T
	select {
	case o := <-done:
		return o.value, o.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
}

// Fallback calls primary and, only if it fails, secondary. When both fail
// the returned error joins both causes, primary first.
func Fallback[T any](ctx context.Context, primary, secondary func(context.Context) (T, error)) (result T, usedFallback bool, err error) {
	result, err = primary(ctx)
	if err == nil {
		return result, false, nil
	}
	if secondary == nil {
		return result, false, err
	}
	result, fbErr := secondary(ctx)
	if fbErr != nil {
		var zero T
		return zero, true, errors.Join(err, fbErr)
	}
	return result, true, nil
}
