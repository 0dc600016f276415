package image

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

var ErrNoDifferenceImage = errors.New("no difference image available")

type View int

const (
	ViewDiff View = iota
	ViewSlider
	ViewSideBySide
)

func (v View) String() string {
	switch v {
	case ViewDiff:
		return "diff"
	case ViewSlider:
		return "slider"
	case ViewSideBySide:
		return "sideBySide"
	default:
		return fmt.Sprintf("View(%d)", int(v))
	}
}

func ParseView(s string) (View, error) {
	switch s {
	case "diff", "":
		return ViewDiff, nil
	case "slider":
		return ViewSlider, nil
	case "sideBySide", "side-by-side":
		return ViewSideBySide, nil
	default:
		return 0, fmt.Errorf("unknown view: %s", s)
	}
}

// Render produces the image shown for view. ratio is only read by ViewSlider.
func Render(view View, a *image.NRGBA, b *image.NRGBA, diff *image.RGBA, ratio float64) (image.Image, error) {
	switch view {
	case ViewDiff:
		if diff == nil {
			return nil, ErrNoDifferenceImage
		}
		return diff, nil
	case ViewSlider:
		return Composite(a, b, ratio)
	case ViewSideBySide:
		return SideBySide(a, b)
	default:
		return nil, fmt.Errorf("unknown view: %s", view)
	}
}

// SideBySide places a and b next to each other, top aligned.
func SideBySide(a *image.NRGBA, b *image.NRGBA) (*image.NRGBA, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: missing buffer", ErrDegenerateInput)
	}

	aBounds := a.Bounds()
	bBounds := b.Bounds()
	width := aBounds.Dx() + bBounds.Dx()
	height := max(aBounds.Dy(), bBounds.Dy())

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, image.Rect(0, 0, aBounds.Dx(), aBounds.Dy()), a, aBounds.Min, draw.Src)
	draw.Draw(canvas, image.Rect(aBounds.Dx(), 0, width, bBounds.Dy()), b, bBounds.Min, draw.Src)
	return canvas, nil
}
