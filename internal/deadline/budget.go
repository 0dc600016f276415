package deadline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrTimeout = errors.New("timed out")

type Budget struct {
	Name    string
	Timeout time.Duration
}

var (
	// ComparisonBudget bounds a whole comparison call.
	ComparisonBudget = Budget{
		Name:    "comparison",
		Timeout: 15 * time.Second,
	}
	// PixelDifferenceBudget bounds the pixel difference stage alone.
	PixelDifferenceBudget = Budget{
		Name:    "pixel difference analysis",
		Timeout: 10 * time.Second,
	}
)

type TimeoutError struct {
	Budget Budget
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Budget.Name, e.Budget.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// WithBudget derives a context that is cancelled with a *TimeoutError once
// the budget elapses. A non-positive timeout only adds a cancel function.
func WithBudget(ctx context.Context, b Budget) (context.Context, context.CancelFunc) {
	if b.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeoutCause(ctx, b.Timeout, &TimeoutError{Budget: b})
}

// Merge returns a context that is done as soon as either a or b is done.
// The cause of the merged context is the cause of whichever fired first.
func Merge(a context.Context, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(a)
	stop := context.AfterFunc(b, func() {
		cancel(context.Cause(b))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}

// Cause reports why ctx is done, preferring the budget that fired.
func Cause(ctx context.Context) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// Race runs fn and returns whichever comes first: its result or the
// cancellation of ctx. fn keeps running in the background when it loses,
// so it must not write to state the caller still reads.
func Race[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, Cause(ctx)
	}

	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, Cause(ctx)
	}
}
