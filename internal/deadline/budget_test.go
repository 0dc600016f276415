package deadline_test

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"testing"
	"time"
	"visual-comparator/internal/deadline"

	"github.com/google/go-cmp/cmp"
)

func TestWithBudgetFiresWithTimeoutError(t *testing.T) {
	t.Parallel()

	budget := deadline.Budget{Name: "pixel difference analysis", Timeout: 5 * time.Millisecond}
	ctx, cancel := deadline.WithBudget(context.Background(), budget)
	defer cancel()

	<-ctx.Done()

	err := deadline.Cause(ctx)
	if !errors.Is(err, deadline.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	var timeoutError *deadline.TimeoutError
	if !errors.As(err, &timeoutError) {
		t.Fatalf("expected *TimeoutError, got %T", err)
	}
	if diff := cmp.Diff(budget, timeoutError.Budget); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("pixel difference analysis timed out after 5ms", err.Error()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestWithBudgetWithoutTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := deadline.WithBudget(context.Background(), deadline.Budget{Name: "unbounded"})
	if _, ok := ctx.Deadline(); ok {
		t.Errorf("expected no deadline")
	}
	cancel()
	if !errors.Is(deadline.Cause(ctx), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", deadline.Cause(ctx))
	}
}

func TestFirstBudgetWins(t *testing.T) {
	short := 5 * time.Millisecond
	long := time.Hour

	tests := []struct {
		name      string
		outer     deadline.Budget
		inner     deadline.Budget
		wantFirst string
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			deadline.Budget{Name: "comparison", Timeout: long},
			deadline.Budget{Name: "pixel difference analysis", Timeout: short},
			"pixel difference analysis",
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			deadline.Budget{Name: "comparison", Timeout: short},
			deadline.Budget{Name: "pixel difference analysis", Timeout: long},
			"comparison",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			outer, cancelOuter := deadline.WithBudget(context.Background(), tt.outer)
			defer cancelOuter()
			inner, cancelInner := deadline.WithBudget(context.Background(), tt.inner)
			defer cancelInner()

			merged, cancel := deadline.Merge(outer, inner)
			defer cancel()

			<-merged.Done()

			var timeoutError *deadline.TimeoutError
			if !errors.As(deadline.Cause(merged), &timeoutError) {
				t.Fatalf("expected *TimeoutError, got %v", deadline.Cause(merged))
			}
			if diff := cmp.Diff(tt.wantFirst, timeoutError.Budget.Name); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeCancel(t *testing.T) {
	t.Parallel()

	merged, cancel := deadline.Merge(context.Background(), context.Background())
	cancel()
	<-merged.Done()
	if !errors.Is(deadline.Cause(merged), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", deadline.Cause(merged))
	}
}

func TestRace(t *testing.T) {
	t.Run("FunctionWins", func(t *testing.T) {
		t.Parallel()

		got, err := deadline.Race(context.Background(), func(ctx context.Context) (int, error) {
			return 42, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(42, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("FunctionError", func(t *testing.T) {
		t.Parallel()

		want := errors.New("boom")
		_, err := deadline.Race(context.Background(), func(ctx context.Context) (int, error) {
			return 0, want
		})
		if !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	})

	t.Run("TimeoutWinsAgainstUncooperativeFunction", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := deadline.WithBudget(context.Background(), deadline.Budget{Name: "comparison", Timeout: 5 * time.Millisecond})
		defer cancel()

		release := make(chan struct{})
		defer close(release)

		_, err := deadline.Race(ctx, func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
		if !errors.Is(err, deadline.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("AlreadyDone", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := make(chan struct{}, 1)
		_, err := deadline.Race(ctx, func(context.Context) (int, error) {
			called <- struct{}{}
			return 1, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		select {
		case <-called:
			t.Errorf("function should not run on a done context")
		default:
		}
	})
}
