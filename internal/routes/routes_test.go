package routes_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"visual-comparator/internal/compare"
	"visual-comparator/internal/routes"
	"visual-comparator/internal/storage"

	"github.com/google/go-cmp/cmp"
)

func encode(t *testing.T, width int, height int, c color.Color) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.Bytes()
}

func upload(t *testing.T, path string, files map[string][]byte, values map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for field, data := range files {
		part, err := writer.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for key, value := range values {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, path, &body)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	return r
}

func TestCompare(t *testing.T) {
	red := encode(t, 4, 4, color.NRGBA{R: 255, A: 255})
	blue := encode(t, 4, 4, color.NRGBA{B: 255, A: 255})

	t.Run("Diff", func(t *testing.T) {
		handler := routes.Compare(compare.NewComparator(), nil)
		w := httptest.NewRecorder()
		handler(w, upload(t, "/compare", map[string][]byte{"baseline": red, "target": blue}, nil))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if diff := cmp.Diff("application/json", w.Header().Get("Content-Type")); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}

		var got routes.CompareResponse
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff("diff", got.View); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if got.Report == nil || got.Report.Visual.PixelDifference == nil {
			t.Fatalf("Expected a pixel difference, got %+v", got.Report)
		}
		if diff := cmp.Diff(16, got.Report.Visual.PixelDifference.DifferentPixels); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if got.Artifacts != nil {
			t.Errorf("Expected no artifacts, got %+v", got.Artifacts)
		}

		data, err := base64.StdEncoding.DecodeString(got.ViewData)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(image.Rect(0, 0, 4, 4), img.Bounds()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("SideBySideWithArtifacts", func(t *testing.T) {
		storageClient, err := storage.NewFileStorage(context.Background(), storage.FileConfig{Directory: t.TempDir()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		handler := routes.Compare(compare.NewComparator(), storageClient)
		w := httptest.NewRecorder()
		handler(w, upload(t, "/compare", map[string][]byte{"baseline": red, "target": blue}, map[string]string{
			"mode":  "fast",
			"view":  "sideBySide",
			"store": "true",
		}))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var got routes.CompareResponse
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(compare.MessageFast, got.Report.Visual.Message); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if got.Artifacts == nil || got.Artifacts.Report == "" {
			t.Errorf("Expected stored artifacts, got %+v", got.Artifacts)
		}

		data, err := base64.StdEncoding.DecodeString(got.ViewData)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(image.Rect(0, 0, 8, 4), img.Bounds()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("BadRequest", func(t *testing.T) {
		tests := []struct {
			name   string
			files  map[string][]byte
			values map[string]string
		}{
			{"MissingTarget", map[string][]byte{"baseline": red}, nil},
			{"NotAnImage", map[string][]byte{"baseline": red, "target": []byte("plain text")}, nil},
			{"UnknownMode", map[string][]byte{"baseline": red, "target": blue}, map[string]string{"mode": "slow"}},
			{"UnknownView", map[string][]byte{"baseline": red, "target": blue}, map[string]string{"view": "overlay"}},
			{"InvalidRatio", map[string][]byte{"baseline": red, "target": blue}, map[string]string{"ratio": "half"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				handler := routes.Compare(compare.NewComparator(), nil)
				w := httptest.NewRecorder()
				handler(w, upload(t, "/compare", tt.files, tt.values))

				if diff := cmp.Diff(http.StatusBadRequest, w.Code); diff != "" {
					t.Errorf("(-want +got):\n%s", diff)
				}
			})
		}
	})
}

func TestSlider(t *testing.T) {
	red := encode(t, 10, 2, color.NRGBA{R: 255, A: 255})
	blue := encode(t, 10, 2, color.NRGBA{B: 255, A: 255})

	handler := routes.Slider()
	w := httptest.NewRecorder()
	handler(w, upload(t, "/slider", map[string][]byte{"baseline": red, "target": blue}, map[string]string{"ratio": "30"}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if diff := cmp.Diff("image/png", w.Header().Get("Content-Type")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := color.NRGBAModel.Convert(img.At(2, 0)); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("Expected baseline left of the split, got %v", got)
	}
	if got := color.NRGBAModel.Convert(img.At(3, 0)); got != (color.NRGBA{B: 255, A: 255}) {
		t.Errorf("Expected target right of the split, got %v", got)
	}
}
