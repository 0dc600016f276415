package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// DefaultMaxBytes bounds the size of a downloaded image.
const DefaultMaxBytes = 32 << 20

// HTTPProvider downloads images from http and https URLs.
type HTTPProvider struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPProvider(client *http.Client, maxBytes int64) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPProvider{
		client:   client,
		maxBytes: maxBytes,
	}
}

func (p *HTTPProvider) Image(ctx context.Context, ref string) (image.Image, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Accept", "image/*")

	response, err := p.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, ref, response.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("%s is larger than %d bytes", ref, p.maxBytes)
	}

	img, _, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	return img, nil
}
