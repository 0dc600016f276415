package image

import (
	"context"
	"errors"
	"image"
	"image/draw"

	"golang.org/x/exp/constraints"
)

var (
	ErrDimensionMismatch = errors.New("buffers differ in size")
	ErrDegenerateInput   = errors.New("buffer has zero width or height")
	ErrComputation       = errors.New("pixel difference computation failed")
)

// DiffResult is the outcome of one difference calculation. When Error is
// set the statistics are zero and must not be used.
type DiffResult struct {
	DifferentPixels int     `json:"differentPixels"`
	TotalPixels     int     `json:"totalPixels"`
	Percentage      float64 `json:"percentage"`
	SamplingFactor  int     `json:"samplingFactor,omitempty"`
	Error           string  `json:"error,omitempty"`

	Image *image.RGBA `json:"-"`
	Cause error       `json:"-"`
}

func (r *DiffResult) Failed() bool {
	return r.Error != ""
}

// FailedResult is a result without statistics that carries err.
func FailedResult(err error) *DiffResult {
	return &DiffResult{
		Error: err.Error(),
		Cause: err,
	}
}

type Differ interface {
	Calculate(ctx context.Context, baseline *image.NRGBA, target *image.NRGBA) *DiffResult
}

// ToBuffer returns img as a dense, zero-origin, non-premultiplied RGBA
// buffer. Buffers that already have that layout are returned as is.
func ToBuffer(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && isDense(n) {
		return n
	}

	bounds := img.Bounds()
	buffer := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(buffer, buffer.Bounds(), img, bounds.Min, draw.Src)
	return buffer
}

func isDense(n *image.NRGBA) bool {
	return n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx()
}

func sameSize(a image.Image, b image.Image) bool {
	return a.Bounds().Dx() == b.Bounds().Dx() && a.Bounds().Dy() == b.Bounds().Dy()
}

func clamp[T constraints.Ordered](v T, lo T, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
