package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"visual-comparator/internal/compare"
	diffimage "visual-comparator/internal/diff/image"
)

// Slider answers a multipart upload of "baseline" and "target" with the PNG
// slider composite of both at "ratio" percent. It runs no comparison and is
// meant to be called on every slider movement.
func Slider() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseline, target, err := parseUpload(w, r)
		if err != nil {
			slog.Warn(fmt.Sprintf("invalid slider request: %s", err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ratio, err := formRatio(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		canvas, err := diffimage.Normalize(baseline, target)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		composite, err := diffimage.Composite(canvas.A, canvas.B, ratio)
		if err != nil {
			slog.Error(fmt.Sprintf("failed to composite: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		data, err := compare.EncodePNG(composite)
		if err != nil {
			slog.Error(fmt.Sprintf("failed to encode composite: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
