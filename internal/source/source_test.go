package source_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"visual-comparator/internal/capture"
	"visual-comparator/internal/source"
	"visual-comparator/internal/storage"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/bmp"
)

func encode(t *testing.T, format string) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 5, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	for _, format := range []string{"png", "jpeg", "bmp"} {
		t.Run(format, func(t *testing.T) {
			img, got, err := source.Decode(encode(t, format))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(format, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(image.Rect(0, 0, 5, 3), img.Bounds()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}

	t.Run("Unsupported", func(t *testing.T) {
		if _, _, err := source.Decode([]byte("body { color: red }")); !errors.Is(err, source.ErrUnsupportedFormat) {
			t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("TooLarge", func(t *testing.T) {
		// a few hundred bytes of PNG whose IHDR claims 100000x100000
		data := encode(t, "png")
		binary.BigEndian.PutUint32(data[16:20], 100000)
		binary.BigEndian.PutUint32(data[20:24], 100000)
		binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))

		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		img, _, err := source.Decode(data)
		if !errors.Is(err, source.ErrImageTooLarge) {
			t.Errorf("Expected ErrImageTooLarge, got %v", err)
		}
		if img != nil {
			t.Errorf("Expected no image, got %v", img.Bounds())
		}
	})
}

func TestHTTPProvider(t *testing.T) {
	data := encode(t, "png")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Run("Success", func(t *testing.T) {
		img, err := source.NewHTTPProvider(server.Client(), 0).Image(context.Background(), server.URL+"/a.png")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(image.Rect(0, 0, 5, 3), img.Bounds()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := source.NewHTTPProvider(server.Client(), 0).Image(context.Background(), server.URL+"/missing.png")
		if !errors.Is(err, source.ErrUnexpectedStatus) {
			t.Errorf("Expected ErrUnexpectedStatus, got %v", err)
		}
	})

	t.Run("TooLarge", func(t *testing.T) {
		if _, err := source.NewHTTPProvider(server.Client(), 8).Image(context.Background(), server.URL+"/a.png"); err == nil {
			t.Errorf("Expected an error for an oversized body")
		}
	})
}

func TestStorageProvider(t *testing.T) {
	st, err := storage.NewFileStorage(context.Background(), storage.FileConfig{Directory: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path, err := st.Put(context.Background(), "inputs/a.bmp", encode(t, "bmp"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, err := source.NewStorageProvider(st).Image(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(image.Rect(0, 0, 5, 3), img.Bounds()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

type capturerMock struct {
	fakeCapture func(ctx context.Context, url string, options capture.CaptureOptions) (*capture.CaptureResult, error)
}

func (m *capturerMock) Capture(ctx context.Context, url string, options capture.CaptureOptions) (*capture.CaptureResult, error) {
	return m.fakeCapture(ctx, url, options)
}

func (m *capturerMock) Close() error {
	return nil
}

func TestCaptureProvider(t *testing.T) {
	data := encode(t, "png")
	options := capture.CaptureOptions{MaskSelectors: []string{".clock"}}

	p := source.NewCaptureProvider(&capturerMock{
		fakeCapture: func(ctx context.Context, url string, got capture.CaptureOptions) (*capture.CaptureResult, error) {
			if diff := cmp.Diff(options, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			return &capture.CaptureResult{Screenshot: data, ContentType: "image/png"}, nil
		},
	}, options)

	img, err := p.Image(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(image.Rect(0, 0, 5, 3), img.Bounds()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestMux(t *testing.T) {
	called := map[string]int{}
	provider := func(name string) source.Provider {
		return providerFunc(func(ctx context.Context, ref string) (image.Image, error) {
			called[name]++
			return image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil
		})
	}

	mux := source.NewMux()
	mux.Handle("", provider("file"))
	mux.Handle("s3", provider("file"))
	mux.Handle("https", provider("http"))

	for _, ref := range []string{"testdata/a.png", "/tmp/a.png", "s3://bucket/a.png", "HTTPS://example.com/a.png", `C:\images\a.png`} {
		if _, err := mux.Image(context.Background(), ref); err != nil {
			t.Errorf("%s: unexpected error: %v", ref, err)
		}
	}
	if diff := cmp.Diff(map[string]int{"file": 4, "http": 1}, called); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, err := mux.Image(context.Background(), "ftp://example.com/a.png"); err == nil {
		t.Errorf("Expected an error for an unregistered scheme")
	}
}

type providerFunc func(ctx context.Context, ref string) (image.Image, error)

func (f providerFunc) Image(ctx context.Context, ref string) (image.Image, error) {
	return f(ctx, ref)
}
