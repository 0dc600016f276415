package image

import (
	"encoding/json"
	"fmt"
	"image"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	MaxPaletteEntries = 10

	minPaletteStride     = 16
	paletteStrideDivisor = 40000
	minOpaqueAlpha       = 128
)

type RGB struct {
	R uint8
	G uint8
	B uint8
}

func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *RGB) UnmarshalText(text []byte) error {
	var r, g, b uint8
	if _, err := fmt.Sscanf(string(text), "rgb(%d,%d,%d)", &r, &g, &b); err != nil {
		return fmt.Errorf("invalid color %q: %w", text, err)
	}
	*c = RGB{R: r, G: g, B: b}
	return nil
}

func (c RGB) Hex() string {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Hex()
}

type PaletteEntry struct {
	Color RGB `json:"color"`
	Count int `json:"count"`
}

// MarshalJSON adds the hex notation of the color next to its rgb() form.
func (e PaletteEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Color RGB    `json:"color"`
		Hex   string `json:"hex"`
		Count int    `json:"count"`
	}{
		Color: e.Color,
		Hex:   e.Color.Hex(),
		Count: e.Count,
	})
}

type Palette []PaletteEntry

// PaletteStride is the byte distance between two palette samples. It keeps
// the number of samples around 10,000 for large buffers.
func PaletteStride(bufferLength int) int {
	return max(minPaletteStride, bufferLength/paletteStrideDivisor)
}

// ExtractPalette counts exact RGB triples (no bucketing) over a sampled
// subset of buf, ignoring samples with alpha below 128, and returns the
// most frequent ones. Ties keep the order in which colors were first seen.
//
// The stride is applied to the byte offset, so a stride that is not a
// multiple of 4 reads channel-shifted samples: such a sample takes its
// "alpha" from an R, G or B byte and, when that byte is at least 128, is
// counted as a rotated color. Bright canvases therefore report up to four
// rotations of one solid color while dark ones report only the true color.
func ExtractPalette(buf *image.NRGBA) Palette {
	if buf == nil {
		return Palette{}
	}
	pix := ToBuffer(buf).Pix
	stride := PaletteStride(len(pix))

	counts := make(map[RGB]int)
	var order []RGB
	for i := 0; i+3 < len(pix); i += stride {
		if pix[i+3] < minOpaqueAlpha {
			continue
		}

		c := RGB{R: pix[i], G: pix[i+1], B: pix[i+2]}
		if _, ok := counts[c]; !ok {
			order = append(order, c)
		}
		counts[c]++
	}

	palette := make(Palette, 0, len(order))
	for _, c := range order {
		palette = append(palette, PaletteEntry{Color: c, Count: counts[c]})
	}
	sort.SliceStable(palette, func(i, j int) bool {
		return palette[i].Count > palette[j].Count
	})

	if len(palette) > MaxPaletteEntries {
		palette = palette[:MaxPaletteEntries]
	}
	return palette
}
