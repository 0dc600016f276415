package compare

import (
	"time"
	diffimage "visual-comparator/internal/diff/image"
	"visual-comparator/internal/diff/text"
)

type Status string

const (
	StatusSignificantlyDifferent Status = "significantly-different"
	StatusSomeDifferences        Status = "some-differences"
	StatusNearlyIdentical        Status = "nearly-identical"
)

const (
	MessageFast  = "Fast image comparison completed"
	MessageBasic = "Basic image comparison completed"
)

// StatusOf grades a difference result. Failed results have no status.
func StatusOf(r *diffimage.DiffResult) Status {
	if r == nil || r.Failed() {
		return ""
	}
	switch {
	case r.Percentage > 10:
		return StatusSignificantlyDifferent
	case r.Percentage > 2:
		return StatusSomeDifferences
	default:
		return StatusNearlyIdentical
	}
}

type Report struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Visual    Visual          `json:"visual"`
	Text      *TextComparison `json:"text,omitempty"`
}

type Visual struct {
	Message         string                `json:"message,omitempty"`
	PixelDifference *diffimage.DiffResult `json:"pixelDifference"`
	ColorAnalysis   ColorAnalysis         `json:"colorAnalysis"`
	Regions         []diffimage.Region    `json:"regions,omitempty"`
	Status          Status                `json:"status,omitempty"`
}

type ColorAnalysis struct {
	PaletteA diffimage.Palette `json:"paletteA"`
	PaletteB diffimage.Palette `json:"paletteB"`
}

type TextComparison struct {
	TextA      string        `json:"textA"`
	TextB      string        `json:"textB"`
	Similarity float64       `json:"similarity"`
	WordsA     int           `json:"wordsA"`
	WordsB     int           `json:"wordsB"`
	Changes    []text.Change `json:"changes"`

	Lines string `json:"-"`
}
