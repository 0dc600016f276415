package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	diffimage "visual-comparator/internal/diff/image"
	"visual-comparator/internal/storage"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Artifacts are the storage URLs of one uploaded session. Images that
// could not be rendered are left empty.
type Artifacts struct {
	Difference string `json:"difference,omitempty"`
	Slider     string `json:"slider,omitempty"`
	SideBySide string `json:"sideBySide,omitempty"`
	Report     string `json:"report"`
}

// Upload stores the rendered views and the JSON report below baseKey.
func (s *Session) Upload(ctx context.Context, st storage.Storage, baseKey string, ratio float64) (*Artifacts, error) {
	report, err := json.MarshalIndent(s.Report(), "", "  ")
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal report: %w", err)
	}

	artifacts := &Artifacts{}
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		url, err := st.Put(ctx, baseKey+"/report.json", report)
		if err != nil {
			return xerrors.Errorf("failed to upload report: %w", err)
		}
		artifacts.Report = url
		return nil
	})

	for _, v := range []struct {
		view diffimage.View
		name string
		url  *string
	}{
		{diffimage.ViewDiff, "diff.png", &artifacts.Difference},
		{diffimage.ViewSlider, "slider.png", &artifacts.Slider},
		{diffimage.ViewSideBySide, "side-by-side.png", &artifacts.SideBySide},
	} {
		img, err := s.Render(v.view, ratio)
		if err != nil {
			continue
		}

		eg.Go(func() error {
			data, err := EncodePNG(img)
			if err != nil {
				return xerrors.Errorf("failed to encode %s view: %w", v.view, err)
			}
			url, err := st.Put(ctx, baseKey+"/"+v.name, data)
			if err != nil {
				return xerrors.Errorf("failed to upload %s view: %w", v.view, err)
			}
			*v.url = url
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
