package image

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

const (
	MaxCanvasWidth  = 600
	MaxCanvasHeight = 400
)

// Canvas holds two sources stretched onto one shared working resolution.
type Canvas struct {
	Width  int
	Height int
	A      *image.NRGBA
	B      *image.NRGBA
}

// CanvasSize picks the shared working resolution for two sources.
//
// This is a deliberately simple heuristic and not letterboxing: the size
// follows the aspect ratio of A when A is strictly wider than B, otherwise
// the aspect ratio of B, and only the leading dimension is capped
// (600 wide or 400 high). Both sources are later stretched to it.
// Fractional sizes are truncated.
func CanvasSize(a image.Rectangle, b image.Rectangle) (int, int) {
	wA, hA := float64(a.Dx()), float64(a.Dy())
	wB, hB := float64(b.Dx()), float64(b.Dy())
	if hA <= 0 || hB <= 0 || wA <= 0 || wB <= 0 {
		return 0, 0
	}

	aspectRatioA := wA / hA
	aspectRatioB := wB / hB

	var width, height float64
	if aspectRatioA > aspectRatioB {
		width = min(MaxCanvasWidth, max(wA, wB))
		height = width / aspectRatioA
	} else {
		height = min(MaxCanvasHeight, max(hA, hB))
		width = height * aspectRatioB
	}

	return int(width), int(height)
}

// Normalize stretches both sources onto the size chosen by CanvasSize.
// The sources are never modified.
func Normalize(a image.Image, b image.Image) (*Canvas, error) {
	width, height := CanvasSize(a.Bounds(), b.Bounds())
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d for sources %v and %v", ErrDegenerateInput, width, height, a.Bounds().Size(), b.Bounds().Size())
	}

	return &Canvas{
		Width:  width,
		Height: height,
		A:      stretch(a, width, height),
		B:      stretch(b, width, height),
	}, nil
}

func stretch(img image.Image, width int, height int) *image.NRGBA {
	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return ToBuffer(img)
	}
	return ToBuffer(resize.Resize(uint(width), uint(height), img, resize.Bilinear))
}
