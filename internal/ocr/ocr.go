package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"visual-comparator/internal/compare"
)

var ErrUnexpectedStatus = errors.New("unexpected status from text recognition provider")

// Word is one recognized word and its bounding box in buffer pixels.
type Word struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	X0         int     `json:"x0"`
	Y0         int     `json:"y0"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
}

type response struct {
	Text  string `json:"text"`
	Words []Word `json:"words"`
}

type Config struct {
	// Endpoint receives the buffer as a PNG request body.
	Endpoint string
	Language string
}

// Client recognizes text with an HTTP provider that answers
// {"text": "...", "words": [...]} for a POSTed PNG.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

func (c *Client) Recognize(ctx context.Context, img image.Image) (*compare.Recognition, error) {
	var body bytes.Buffer
	if err := png.Encode(&body, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "image/png")
	request.Header.Set("Accept", "application/json")
	if c.config.Language != "" {
		q := request.URL.Query()
		q.Set("lang", c.config.Language)
		request.URL.RawQuery = q.Encode()
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to call text recognition provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(b))
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode text recognition response: %w", err)
	}

	return &compare.Recognition{
		Text:  r.Text,
		Words: len(r.Words),
	}, nil
}
