package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"
	"visual-comparator/internal/compare"
	"visual-comparator/internal/myhttp"
	"visual-comparator/internal/ocr"
	"visual-comparator/internal/runnable"
	"visual-comparator/internal/storage"

	"github.com/joho/godotenv"
)

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case bool:
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return any(boolValue).(T)
		}
	case time.Duration:
		if durationValue, err := time.ParseDuration(value); err == nil {
			return any(durationValue).(T)
		}
	}

	return defaultValue
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	var debug bool
	var storageBackend string
	var directory string
	var ocrEndpoint string
	var ocrLanguage string
	var ocrTimeout time.Duration
	flag.BoolVar(&debug, "debug", envOrDefaultValue("DEBUG", false), "Enable text logs and pprof endpoints")
	flag.StringVar(&storageBackend, "storage-backend", envOrDefaultValue("STORAGE_BACKEND", ""), "Storage backend for artifacts (file or s3), artifacts are not stored when empty")
	flag.StringVar(&directory, "directory", envOrDefaultValue("DIRECTORY", "/tmp"), "Output directory of the file backend")
	flag.StringVar(&ocrEndpoint, "ocr-endpoint", envOrDefaultValue("OCR_ENDPOINT", ""), "Text recognition endpoint, comparison of text is skipped when empty")
	flag.StringVar(&ocrLanguage, "ocr-language", envOrDefaultValue("OCR_LANGUAGE", "eng"), "Text recognition language")
	flag.DurationVar(&ocrTimeout, "ocr-timeout", envOrDefaultValue("OCR_TIMEOUT", 10*time.Second), "Timeout of a text recognition request including retries")

	flag.Parse()

	runnable.Debug = debug

	ctx := context.Background()

	var s storage.Storage
	var err error
	switch storageBackend {
	case "":
	case "file":
		s, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: directory,
		})
		if err != nil {
			log.Fatalf("failed to create file storage backend: %v", err)
		}
	case "s3":
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: os.Getenv("S3_BUCKET"),
		})
		if err != nil {
			log.Fatalf("failed to create S3 storage backend: %v", err)
		}
	default:
		log.Fatalf("unknown storage backend: %s", storageBackend)
	}

	var opts []compare.Option
	if ocrEndpoint != "" {
		config := myhttp.DefaultClientConfig()
		config.Timeout = ocrTimeout
		opts = append(opts, compare.WithTextRecognizer(ocr.NewClient(ocr.Config{
			Endpoint: ocrEndpoint,
			Language: ocrLanguage,
		}, myhttp.NewClient(config, nil))))
	}

	server := runnable.NewServer(s, opts...)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
