package source

import (
	"context"
	"fmt"
	"image"
	"visual-comparator/internal/capture"
)

// CaptureProvider screenshots web pages and decodes the screenshot.
type CaptureProvider struct {
	capturer capture.Capturer
	options  capture.CaptureOptions
}

func NewCaptureProvider(c capture.Capturer, options capture.CaptureOptions) *CaptureProvider {
	return &CaptureProvider{
		capturer: c,
		options:  options,
	}
}

func (p *CaptureProvider) Image(ctx context.Context, ref string) (image.Image, error) {
	result, err := p.capturer.Capture(ctx, ref, p.options)
	if err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", ref, err)
	}

	img, _, err := Decode(result.Screenshot)
	if err != nil {
		return nil, fmt.Errorf("screenshot of %s: %w", ref, err)
	}
	return img, nil
}
