package routes

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"visual-comparator/internal/compare"
	diffimage "visual-comparator/internal/diff/image"
	"visual-comparator/internal/storage"
)

type CompareResponse struct {
	Report    *compare.Report    `json:"report"`
	View      string             `json:"view"`
	ViewData  string             `json:"viewData,omitempty"`
	Artifacts *compare.Artifacts `json:"artifacts,omitempty"`
}

// Compare answers a multipart upload of "baseline" and "target" with the
// comparison report and the requested view as a base64 PNG. Optional form
// values: mode (fast|full), view (diff|slider|sideBySide), ratio and store.
// Artifacts are stored only when storageClient is set and store is true.
func Compare(comparator *compare.Comparator, storageClient storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseline, target, err := parseUpload(w, r)
		if err != nil {
			slog.Warn(fmt.Sprintf("invalid compare request: %s", err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		mode, err := diffimage.ParseMode(r.FormValue("mode"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		view, err := diffimage.ParseView(r.FormValue("view"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ratio, err := formRatio(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		store, _ := strconv.ParseBool(r.FormValue("store"))

		session, err := comparator.Compare(r.Context(), baseline, target, mode)
		if err != nil {
			if errors.Is(err, compare.ErrComparisonInProgress) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			slog.Error(fmt.Sprintf("failed to compare images: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		response := CompareResponse{
			Report: session.Report(),
			View:   view.String(),
		}

		if img, err := session.Render(view, ratio); err == nil {
			data, err := compare.EncodePNG(img)
			if err != nil {
				slog.Error(fmt.Sprintf("failed to encode view: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			response.ViewData = base64.StdEncoding.EncodeToString(data)
		} else {
			slog.Debug(fmt.Sprintf("view %s is not available: %s", view, err))
		}

		if store && storageClient != nil {
			key := storage.Key("Comparison", time.Now(), r.FormValue("baselineName"), r.FormValue("targetName"))
			artifacts, err := session.Upload(r.Context(), storageClient, key, ratio)
			if err != nil {
				slog.Error(fmt.Sprintf("failed to upload artifacts: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			response.Artifacts = artifacts
		}

		b, err := json.Marshal(response)
		if err != nil {
			slog.Error(fmt.Sprintf("failed to marshal json: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}
