package image

import (
	"fmt"
	"image"
	"math"
)

const DefaultSplitRatio = 50.0

// SplitPosition converts a ratio in percent into the first column taken
// from the second buffer. Ratios outside [0,100] are clamped and NaN falls
// back to DefaultSplitRatio.
func SplitPosition(ratio float64, width int) int {
	if math.IsNaN(ratio) {
		ratio = DefaultSplitRatio
	}
	ratio = clamp(ratio, 0, 100)
	return int(math.Round(ratio / 100 * float64(width)))
}

// Composite shows a left of the split position and b from it on.
func Composite(a *image.NRGBA, b *image.NRGBA, ratio float64) (*image.NRGBA, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: missing buffer", ErrDegenerateInput)
	}
	if !sameSize(a, b) {
		return nil, fmt.Errorf("%w: %v vs %v", ErrDimensionMismatch, a.Bounds().Size(), b.Bounds().Size())
	}

	left := ToBuffer(a)
	right := ToBuffer(b)
	width := left.Rect.Dx()
	height := left.Rect.Dy()
	split := SplitPosition(ratio, width) * 4

	composite := image.NewNRGBA(image.Rect(0, 0, width, height))
	rowLength := width * 4
	for y := 0; y < height; y++ {
		offset := y * composite.Stride
		copy(composite.Pix[offset:offset+split], left.Pix[offset:offset+split])
		copy(composite.Pix[offset+split:offset+rowLength], right.Pix[offset+split:offset+rowLength])
	}

	return composite, nil
}
