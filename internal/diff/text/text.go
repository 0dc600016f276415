package text

import (
	"strings"
)

type Kind string

const (
	KindAdded   Kind = "added"
	KindRemoved Kind = "removed"
	KindChanged Kind = "changed"
)

type Change struct {
	Position int    `json:"position"`
	From     string `json:"from"`
	To       string `json:"to"`
	Kind     Kind   `json:"type"`
}

type Result struct {
	Similarity float64  `json:"similarity"`
	Changes    []Change `json:"changes"`
	Lines      string   `json:"-"`
}

type Differ interface {
	Calculate(baseline string, target string) *Result
}

type WordDiff struct{}

func NewWordDiff() *WordDiff {
	return &WordDiff{}
}

// Calculate trims both texts and reports their edit-distance similarity, the
// positional word changes and a line listing of the two texts.
func (d *WordDiff) Calculate(baseline string, target string) *Result {
	baseline = strings.TrimSpace(baseline)
	target = strings.TrimSpace(target)

	return &Result{
		Similarity: Similarity(baseline, target),
		Changes:    WordChanges(baseline, target),
		Lines:      Lines(baseline, target),
	}
}
