package capture

import (
	"context"
)

type CaptureResult struct {
	Screenshot []byte
	// ContentType is the MIME type of Screenshot.
	ContentType string
}

type CaptureOptions struct {
	Headers map[string]string
	// MaskSelectors are covered with opaque black boxes before the
	// screenshot so volatile content does not show up as a difference.
	MaskSelectors []string
}

type Capturer interface {
	Capture(ctx context.Context, url string, options CaptureOptions) (*CaptureResult, error)
	Close() error
}
