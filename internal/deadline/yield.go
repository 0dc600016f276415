package deadline

import (
	"context"
	"runtime"
)

// DefaultYieldEvery is the number of processed samples between two
// suspension points in the pixel loops.
const DefaultYieldEvery = 5000

// Yielder hands control back to the scheduler every Every ticks and
// reports cancellation at those points. It is not safe for concurrent use;
// give each worker its own.
type Yielder struct {
	every  int
	ticks  int
	yields int
}

func NewYielder(every int) *Yielder {
	return &Yielder{
		every: every,
	}
}

func (y *Yielder) Tick(ctx context.Context) error {
	y.ticks++
	if y.every <= 0 || y.ticks%y.every != 0 {
		return nil
	}

	y.yields++
	runtime.Gosched()

	if ctx.Err() != nil {
		return Cause(ctx)
	}
	return nil
}

func (y *Yielder) Ticks() int {
	return y.ticks
}

func (y *Yielder) Yields() int {
	return y.yields
}
