package routes

import (
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	diffimage "visual-comparator/internal/diff/image"
	"visual-comparator/internal/source"
)

// MaxUploadBytes bounds a multipart request carrying both images.
const MaxUploadBytes = 64 << 20

var errBadRequest = errors.New("bad request")

func parseUpload(w http.ResponseWriter, r *http.Request) (image.Image, image.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to parse multipart form: %w", errBadRequest, err)
	}

	baseline, err := formImage(r, "baseline")
	if err != nil {
		return nil, nil, err
	}
	target, err := formImage(r, "target")
	if err != nil {
		return nil, nil, err
	}
	return baseline, target, nil
}

func formImage(r *http.Request, field string) (image.Image, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s: %w", errBadRequest, field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", errBadRequest, field, err)
	}
	img, _, err := source.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errBadRequest, field, err)
	}
	return img, nil
}

func formRatio(r *http.Request) (float64, error) {
	v := r.FormValue("ratio")
	if v == "" {
		return diffimage.DefaultSplitRatio, nil
	}
	ratio, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid ratio: %s", errBadRequest, v)
	}
	return ratio, nil
}
