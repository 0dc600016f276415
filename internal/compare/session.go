package compare

import (
	"fmt"
	"image"
	"time"
	diffimage "visual-comparator/internal/diff/image"
)

// Session holds everything one comparison produced. It is never shared
// between comparisons, so its buffers can be read after the comparator
// has moved on.
type Session struct {
	Mode       diffimage.Mode
	Canvas     *diffimage.Canvas
	Difference *diffimage.DiffResult
	PaletteA   diffimage.Palette
	PaletteB   diffimage.Palette
	Regions    []diffimage.Region
	Text       *TextComparison
	Message    string

	StartedAt time.Time
	Elapsed   time.Duration
}

func (s *Session) Report() *Report {
	return &Report{
		Type:      "image",
		Timestamp: s.StartedAt.UTC(),
		Visual: Visual{
			Message:         s.Message,
			PixelDifference: s.Difference,
			ColorAnalysis: ColorAnalysis{
				PaletteA: s.PaletteA,
				PaletteB: s.PaletteB,
			},
			Regions: s.Regions,
			Status:  StatusOf(s.Difference),
		},
		Text: s.Text,
	}
}

// Slider composites the normalized buffers, A left of ratio percent of the
// width and B from there on.
func (s *Session) Slider(ratio float64) (*image.NRGBA, error) {
	if s.Canvas == nil {
		return nil, fmt.Errorf("%w: no normalized buffers", diffimage.ErrDegenerateInput)
	}
	return diffimage.Composite(s.Canvas.A, s.Canvas.B, ratio)
}

func (s *Session) Render(view diffimage.View, ratio float64) (image.Image, error) {
	if s.Canvas == nil {
		return nil, fmt.Errorf("%w: no normalized buffers", diffimage.ErrDegenerateInput)
	}

	var diff *image.RGBA
	if s.Difference != nil {
		diff = s.Difference.Image
	}
	return diffimage.Render(view, s.Canvas.A, s.Canvas.B, diff, ratio)
}
