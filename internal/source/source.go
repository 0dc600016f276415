package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds the declared width*height of decoded images. Inputs are
// normalized to a small canvas anyway, so anything larger is rejected before
// the pixel buffer is allocated.
const MaxPixels = 50_000_000

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrImageTooLarge     = errors.New("image too large")
)

// Provider supplies decoded images by reference. What a reference is
// depends on the provider: a path, a storage URL or a web page.
type Provider interface {
	Image(ctx context.Context, ref string) (image.Image, error)
}

// Decode decodes PNG, JPEG, GIF, BMP and WebP data and reports the format.
// The header is checked against MaxPixels first.
func Decode(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}
		return nil, "", fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Mux dispatches references to providers by URL scheme. References without
// a scheme go to the provider registered for "".
type Mux struct {
	providers map[string]Provider
}

func NewMux() *Mux {
	return &Mux{
		providers: map[string]Provider{},
	}
}

func (m *Mux) Handle(scheme string, p Provider) {
	m.providers[scheme] = p
}

func (m *Mux) Image(ctx context.Context, ref string) (image.Image, error) {
	scheme := ""
	if u, err := url.Parse(ref); err == nil && len(u.Scheme) > 1 {
		scheme = strings.ToLower(u.Scheme)
	}

	p, ok := m.providers[scheme]
	if !ok {
		return nil, fmt.Errorf("no image source for %q", ref)
	}
	return p.Image(ctx, ref)
}
