package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	"visual-comparator/internal/capture"
	"visual-comparator/internal/compare"
	diffimage "visual-comparator/internal/diff/image"
	"visual-comparator/internal/myhttp"
	"visual-comparator/internal/source"
	"visual-comparator/internal/storage"

	"github.com/joho/godotenv"
	"github.com/playwright-community/playwright-go"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type WorkerOutput struct {
	BaselineURL string             `json:"baselineURL"`
	TargetURL   string             `json:"targetURL"`
	Report      *compare.Report    `json:"report"`
	Artifacts   *compare.Artifacts `json:"artifacts"`
}

type Worker struct {
	Source     source.Provider
	Storage    storage.Storage
	Comparator *compare.Comparator
	Mode       diffimage.Mode
	Ratio      float64
	Now        func() time.Time
}

type headers []string

func (h *headers) String() string {
	return strings.Join(*h, ", ")
}

func (h *headers) Set(value string) error {
	*h = append(*h, value)
	return nil
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

	var chromeDevtoolsProtocolURL string
	var storageBackend string
	var callbackURL string
	var schedule string
	var mode string
	var ratio float64
	var maskSelectors string
	var delay time.Duration
	var viewportWidth int
	var viewportHeight int
	var headers headers
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", envOrDefaultValue("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.StringVar(&storageBackend, "storage-backend", envOrDefaultValue("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&callbackURL, "callback-url", envOrDefaultValue("CALLBACK_URL", ""), "Callback URL to send results to")
	flag.StringVar(&schedule, "schedule", envOrDefaultValue("SCHEDULE", ""), "Cron schedule to compare repeatedly (e.g., '*/30 * * * *'), compares once when empty")
	flag.StringVar(&mode, "mode", envOrDefaultValue("MODE", "full"), "Comparison mode (full or fast)")
	flag.Float64Var(&ratio, "ratio", envOrDefaultValue("RATIO", diffimage.DefaultSplitRatio), "Slider position in percent")
	flag.StringVar(&maskSelectors, "mask-selectors", envOrDefaultValue("MASK_SELECTORS", ""), "Comma-separated list of CSS selectors to mask during capture")
	flag.DurationVar(&delay, "delay", envOrDefaultValue("DELAY", time.Second), "Delay before capturing")
	flag.IntVar(&viewportWidth, "viewport-width", envOrDefaultValue("VIEWPORT_WIDTH", 1280), "Viewport width in pixels")
	flag.IntVar(&viewportHeight, "viewport-height", envOrDefaultValue("VIEWPORT_HEIGHT", 800), "Viewport height in pixels")
	flag.Var(&headers, "H", "Add HTTP header (can be used multiple times, e.g., -H 'Authorization: Bearer token')")

	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		log.Fatalf("baseline, target not specified")
	}
	baseline := args[0]
	target := args[1]

	comparisonMode, err := diffimage.ParseMode(mode)
	if err != nil {
		log.Fatalf("invalid mode: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	config := capture.DefaultPlaywrightConfig()
	if chromeDevtoolsProtocolURL != "" {
		config.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	} else if err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
	}); err != nil {
		log.Fatalf("failed to install playwright browsers: %v", err)
	}
	if delay > 0 {
		config.Delay = delay
	}
	if viewportWidth > 0 {
		config.ViewportWidth = viewportWidth
	}
	if viewportHeight > 0 {
		config.ViewportHeight = viewportHeight
	}

	capturer, err := capture.NewPlaywrightCapturer(ctx, config)
	if err != nil {
		log.Fatalf("failed to initialize capturer: %v", err)
	}
	defer capturer.Close()

	var s storage.Storage
	switch storageBackend {
	case "file":
		s, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: envOrDefaultValue("DIRECTORY", "/tmp"),
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

	worker := &Worker{
		Source:     source.NewCaptureProvider(capturer, parseCaptureOptions(maskSelectors, headers)),
		Storage:    s,
		Comparator: compare.NewComparator(),
		Mode:       comparisonMode,
		Ratio:      ratio,
		Now:        time.Now,
	}

	client := myhttp.NewClient(myhttp.DefaultClientConfig(), nil)
	once := func(ctx context.Context) error {
		result, err := worker.processComparison(ctx, baseline, target)
		if err != nil {
			return xerrors.Errorf("failed to process comparison: %w", err)
		}

		j, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return xerrors.Errorf("failed to marshal result: %w", err)
		}

		if callbackURL == "" {
			fmt.Println(string(j))
			return nil
		}
		if err := callback(ctx, client, callbackURL, j); err != nil {
			return xerrors.Errorf("failed to send callback: %w", err)
		}
		return nil
	}

	if schedule == "" {
		if err := once(ctx); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := runSchedule(ctx, schedule, time.Now, once); err != nil {
		log.Fatalf("%v", err)
	}
}

func parseCaptureOptions(maskSelectors string, headers headers) capture.CaptureOptions {
	options := capture.CaptureOptions{}
	if maskSelectors != "" {
		for _, selector := range strings.Split(maskSelectors, ",") {
			if selector = strings.TrimSpace(selector); selector != "" {
				options.MaskSelectors = append(options.MaskSelectors, selector)
			}
		}
	}
	if len(headers) > 0 {
		options.Headers = make(map[string]string)
		for _, header := range headers {
			key, value, ok := strings.Cut(header, ":")
			if ok {
				options.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		}
	}
	return options
}

// runSchedule calls fn at every activation of the five field cron
// expression until ctx is done. A failed run is logged and does not stop
// the schedule.
func runSchedule(ctx context.Context, expression string, now func() time.Time, fn func(context.Context) error) error {
	schedule, err := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(expression)
	if err != nil {
		return xerrors.Errorf("failed to parse schedule: %w", err)
	}

	for {
		next := schedule.Next(now())
		if next.IsZero() {
			return xerrors.Errorf("schedule %q never activates", expression)
		}
		slog.Info(fmt.Sprintf("next comparison at %s", next.Format(time.RFC3339)))

		timer := time.NewTimer(next.Sub(now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if err := fn(ctx); err != nil {
			slog.Error(fmt.Sprintf("scheduled comparison failed: %s", err))
		}
	}
}

func (w *Worker) processComparison(ctx context.Context, baseline string, target string) (*WorkerOutput, error) {
	var baselineImage image.Image
	var targetImage image.Image

	// Step 1: Capture both pages in parallel
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			img, err := w.Source.Image(ctx, baseline)
			if err != nil {
				return xerrors.Errorf("failed to capture baseline: %w", err)
			}
			baselineImage = img
			return nil
		})

		eg.Go(func() error {
			img, err := w.Source.Image(ctx, target)
			if err != nil {
				return xerrors.Errorf("failed to capture target: %w", err)
			}
			targetImage = img
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	// Step 2: Compare
	session, err := w.Comparator.Compare(ctx, baselineImage, targetImage, w.Mode)
	if err != nil {
		return nil, xerrors.Errorf("failed to compare: %w", err)
	}

	// Step 3: Upload the report and the rendered views
	key := storage.Key("Comparison", w.Now(), baseline, target)
	artifacts, err := session.Upload(ctx, w.Storage, key, w.Ratio)
	if err != nil {
		return nil, xerrors.Errorf("failed to upload artifacts: %w", err)
	}

	return &WorkerOutput{
		BaselineURL: baseline,
		TargetURL:   target,
		Report:      session.Report(),
		Artifacts:   artifacts,
	}, nil
}

func callback(ctx context.Context, client *http.Client, callbackURL string, data []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		return xerrors.Errorf("callback answered %s", response.Status)
	}
	return nil
}
