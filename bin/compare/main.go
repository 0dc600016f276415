package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"
	"visual-comparator/internal/compare"
	diffimage "visual-comparator/internal/diff/image"
	"visual-comparator/internal/myhttp"
	"visual-comparator/internal/ocr"
	"visual-comparator/internal/source"
	"visual-comparator/internal/storage"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type CompareOutput struct {
	Report    *compare.Report    `json:"report"`
	Artifacts *compare.Artifacts `json:"artifacts,omitempty"`
}

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case int:
		if intValue, err := strconv.Atoi(value); err == nil {
			return any(intValue).(T)
		}
	case float64:
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return any(floatValue).(T)
		}
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

	var directory string
	var storageBackend string
	var mode string
	var ratio float64
	var store bool
	var showText bool
	var ocrEndpoint string
	var ocrLanguage string
	var httpTimeout time.Duration
	flag.StringVar(&directory, "directory", envOrDefaultValue("DIRECTORY", "/tmp"), "Output directory")
	flag.StringVar(&storageBackend, "storage-backend", envOrDefaultValue("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&mode, "mode", envOrDefaultValue("MODE", "full"), "Comparison mode (full or fast)")
	flag.Float64Var(&ratio, "ratio", envOrDefaultValue("RATIO", diffimage.DefaultSplitRatio), "Slider position in percent")
	flag.BoolVar(&store, "store", envOrDefaultValue("STORE", true), "Store the report and rendered views")
	flag.BoolVar(&showText, "show-text", envOrDefaultValue("SHOW_TEXT", false), "Print the line listing of recognized text to stderr")
	flag.StringVar(&ocrEndpoint, "ocr-endpoint", envOrDefaultValue("OCR_ENDPOINT", ""), "Text recognition endpoint, comparison of text is skipped when empty")
	flag.StringVar(&ocrLanguage, "ocr-language", envOrDefaultValue("OCR_LANGUAGE", "eng"), "Text recognition language")
	flag.DurationVar(&httpTimeout, "http-timeout", envOrDefaultValue("HTTP_TIMEOUT", 30*time.Second), "Timeout of outbound HTTP requests including retries")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		log.Fatalf("baseline, target not specified")
	}
	baseline := args[0]
	target := args[1]

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("GO_LOG"); ok {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			log.Fatalf("failed to parse log level: %v", err)
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	comparisonMode, err := diffimage.ParseMode(mode)
	if err != nil {
		log.Fatalf("invalid mode: %v", err)
	}

	ctx := context.Background()

	files, err := storage.NewFileStorage(ctx, storage.FileConfig{
		Directory: directory,
	})
	if err != nil {
		log.Fatalf("failed to create file storage backend: %v", err)
	}

	httpConfig := myhttp.DefaultClientConfig()
	httpConfig.Timeout = httpTimeout
	httpClient := myhttp.NewClient(httpConfig, logger)

	sources := source.NewMux()
	sources.Handle("", source.NewStorageProvider(files))
	sources.Handle("file", source.NewStorageProvider(files))
	sources.Handle("http", source.NewHTTPProvider(httpClient, source.DefaultMaxBytes))
	sources.Handle("https", source.NewHTTPProvider(httpClient, source.DefaultMaxBytes))

	s := files
	if storageBackend == "s3" {
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: os.Getenv("S3_BUCKET"),
		})
		if err != nil {
			log.Fatalf("failed to create S3 storage backend: %v", err)
		}
		sources.Handle("s3", source.NewStorageProvider(s))
	} else if storageBackend != "file" {
		log.Fatalf("unknown storage backend: %s", storageBackend)
	}

	opts := []compare.Option{compare.WithLogger(logger)}
	if ocrEndpoint != "" {
		opts = append(opts, compare.WithTextRecognizer(ocr.NewClient(ocr.Config{
			Endpoint: ocrEndpoint,
			Language: ocrLanguage,
		}, httpClient)))
	}
	comparator := compare.NewComparator(opts...)

	output, session, err := run(ctx, comparator, sources, s, baseline, target, comparisonMode, ratio, store)
	if err != nil {
		log.Fatalf("failed to compare: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(output); err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}

	if showText && session.Text != nil {
		fmt.Fprintln(os.Stderr, session.Text.Lines)
	}
}

func run(ctx context.Context, comparator *compare.Comparator, sources source.Provider, s storage.Storage, baseline string, target string, mode diffimage.Mode, ratio float64, store bool) (*CompareOutput, *compare.Session, error) {
	var baselineImage image.Image
	var targetImage image.Image
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			img, err := sources.Image(ctx, baseline)
			if err != nil {
				return xerrors.Errorf("failed to load baseline image: %w", err)
			}
			baselineImage = img
			return nil
		})

		eg.Go(func() error {
			img, err := sources.Image(ctx, target)
			if err != nil {
				return xerrors.Errorf("failed to load target image: %w", err)
			}
			targetImage = img
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, nil, err
		}
	}

	session, err := comparator.Compare(ctx, baselineImage, targetImage, mode)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to compare images: %w", err)
	}

	output := &CompareOutput{
		Report: session.Report(),
	}
	if store {
		key := storage.Key("Comparison", session.StartedAt, baseline, target)
		artifacts, err := session.Upload(ctx, s, key, ratio)
		if err != nil {
			return nil, nil, xerrors.Errorf("failed to upload artifacts: %w", err)
		}
		output.Artifacts = artifacts
	}

	return output, session, nil
}
