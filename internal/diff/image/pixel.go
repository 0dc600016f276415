package image

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync/atomic"
	"visual-comparator/internal/deadline"

	"golang.org/x/sync/errgroup"
)

const (
	// DifferenceThreshold is the Manhattan distance over RGB above which two
	// pixels are considered different.
	DifferenceThreshold = 30
	// MaxSampledPixels caps the number of pixels examined in ModeFull.
	MaxSampledPixels = 200000
	// FastSkipFactor is the fixed stride used by ModeFast.
	FastSkipFactor = 2
)

type Mode int

const (
	// ModeFull adapts the stride to the buffer size and yields periodically.
	ModeFull Mode = iota
	// ModeFast samples every second pixel without yield points.
	ModeFast
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeFast:
		return "fast"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "full", "":
		return ModeFull, nil
	case "fast":
		return ModeFast, nil
	default:
		return 0, fmt.Errorf("unknown comparison mode: %s", s)
	}
}

type PixelDiff struct {
	mode       Mode
	threshold  int
	maxPixels  int
	yieldEvery int
	workers    int
}

type PixelDiffOption func(*PixelDiff)

// WithWorkers sets how many goroutines share the sample loop. The output
// does not depend on it.
func WithWorkers(n int) PixelDiffOption {
	return func(p *PixelDiff) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithYieldEvery(n int) PixelDiffOption {
	return func(p *PixelDiff) {
		p.yieldEvery = n
	}
}

func NewPixelDiff(mode Mode, opts ...PixelDiffOption) *PixelDiff {
	p := &PixelDiff{
		mode:       mode,
		threshold:  DifferenceThreshold,
		maxPixels:  MaxSampledPixels,
		yieldEvery: deadline.DefaultYieldEvery,
		// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
		// https://tip.golang.org/doc/go1.25#container-aware-gomaxprocs
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SkipFactor is the pixel stride between two examined pixels.
func (p *PixelDiff) SkipFactor(totalPixels int) int {
	if p.mode == ModeFast {
		return FastSkipFactor
	}
	if totalPixels > p.maxPixels {
		return (totalPixels + p.maxPixels - 1) / p.maxPixels
	}
	return 1
}

// sampleCount is the number of examined pixels. ModeFull stops after the
// last complete stride; ModeFast also examines a trailing partial stride.
func (p *PixelDiff) sampleCount(totalPixels int, skipFactor int) int {
	if p.mode == ModeFast {
		return (totalPixels + skipFactor - 1) / skipFactor
	}
	return totalPixels / skipFactor
}

// Calculate classifies every skipFactor-th pixel and paints the whole
// stride it stands for: opaque red when different, the grayscale of the
// baseline otherwise. Pixels after the last examined stride stay
// transparent. DifferentPixels is an estimate (different samples times
// skipFactor, capped at TotalPixels).
func (p *PixelDiff) Calculate(ctx context.Context, baseline *image.NRGBA, target *image.NRGBA) (result *DiffResult) {
	defer func() {
		if r := recover(); r != nil {
			result = FailedResult(fmt.Errorf("%w: %v", ErrComputation, r))
		}
	}()

	if baseline == nil || target == nil {
		return FailedResult(fmt.Errorf("%w: missing buffer", ErrComputation))
	}
	if !sameSize(baseline, target) {
		return FailedResult(fmt.Errorf("%w: %v vs %v", ErrDimensionMismatch, baseline.Bounds().Size(), target.Bounds().Size()))
	}

	width := baseline.Bounds().Dx()
	height := baseline.Bounds().Dy()
	if width == 0 || height == 0 {
		return FailedResult(fmt.Errorf("%w: %dx%d", ErrDegenerateInput, width, height))
	}

	a := ToBuffer(baseline)
	b := ToBuffer(target)
	diff := image.NewRGBA(image.Rect(0, 0, width, height))

	totalPixels := width * height
	skipFactor := p.SkipFactor(totalPixels)
	samples := p.sampleCount(totalPixels, skipFactor)

	numWorkers := min(p.workers, samples)
	samplesPerWorker := samples / numWorkers

	var differentSamples int64
	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < numWorkers; i++ {
		start := i * samplesPerWorker
		end := start + samplesPerWorker
		if i == numWorkers-1 {
			end = samples
		}

		eg.Go(func() error {
			n, err := p.process(egCtx, a.Pix, b.Pix, diff.Pix, start, end, skipFactor)
			atomic.AddInt64(&differentSamples, n)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		if ctx.Err() != nil {
			return FailedResult(deadline.Cause(ctx))
		}
		return FailedResult(err)
	}
	if ctx.Err() != nil {
		return FailedResult(deadline.Cause(ctx))
	}

	differentPixels := min(int(differentSamples)*skipFactor, totalPixels)

	return &DiffResult{
		DifferentPixels: differentPixels,
		TotalPixels:     totalPixels,
		Percentage:      clamp(float64(differentPixels)/float64(totalPixels)*100, 0, 100),
		SamplingFactor:  skipFactor,
		Image:           diff,
	}
}

func (p *PixelDiff) process(ctx context.Context, a []byte, b []byte, diff []byte, start int, end int, skipFactor int) (different int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrComputation, r)
		}
	}()

	var yielder *deadline.Yielder
	if p.mode == ModeFull {
		yielder = deadline.NewYielder(p.yieldEvery)
	}

	length := len(a)
	for sample := start; sample < end; sample++ {
		i := sample * skipFactor * 4

		ra, ga, ba := int(a[i]), int(a[i+1]), int(a[i+2])
		rb, gb, bb := int(b[i]), int(b[i+1]), int(b[i+2])

		var r, g, bl uint8
		if abs(ra-rb)+abs(ga-gb)+abs(ba-bb) > p.threshold {
			r, g, bl = 255, 0, 0
			different++
		} else {
			gray := uint8((ra + ga + ba + 1) / 3)
			r, g, bl = gray, gray, gray
		}

		for j := 0; j < skipFactor && i+j*4 < length; j++ {
			idx := i + j*4
			diff[idx] = r
			diff[idx+1] = g
			diff[idx+2] = bl
			diff[idx+3] = 255
		}

		if yielder != nil {
			if err := yielder.Tick(ctx); err != nil {
				return different, err
			}
		}
	}

	return different, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
