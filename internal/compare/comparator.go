package compare

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"
	"visual-comparator/internal/deadline"
	diffimage "visual-comparator/internal/diff/image"
	"visual-comparator/internal/diff/text"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

var (
	ErrComparisonInProgress = errors.New("another comparison is in progress")
	ErrNoRecognition        = errors.New("text recognizer returned no result")
)

var tracer = otel.Tracer("visual-comparator/internal/compare")

type Recognition struct {
	Text  string `json:"text"`
	Words int    `json:"words"`
}

// TextRecognizer extracts text from a rendered buffer.
type TextRecognizer interface {
	Recognize(ctx context.Context, img image.Image) (*Recognition, error)
}

type Comparator struct {
	mu sync.Mutex

	recognizer       TextRecognizer
	textDiffer       text.Differ
	comparisonBudget deadline.Budget
	pixelBudget      deadline.Budget
	pixelOptions     []diffimage.PixelDiffOption
	duration         metric.Int64Histogram
	logger           *slog.Logger
	now              func() time.Time
}

type Option func(*Comparator)

func WithTextRecognizer(r TextRecognizer) Option {
	return func(c *Comparator) {
		c.recognizer = r
	}
}

// WithBudgets replaces the budget of a whole comparison and the budget of
// its pixel difference stage.
func WithBudgets(comparison deadline.Budget, pixelDifference deadline.Budget) Option {
	return func(c *Comparator) {
		c.comparisonBudget = comparison
		c.pixelBudget = pixelDifference
	}
}

func WithPixelDiffOptions(opts ...diffimage.PixelDiffOption) Option {
	return func(c *Comparator) {
		c.pixelOptions = append(c.pixelOptions, opts...)
	}
}

// WithDurationHistogram records the wall-clock milliseconds of each
// comparison.
func WithDurationHistogram(h metric.Int64Histogram) Option {
	return func(c *Comparator) {
		c.duration = h
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Comparator) {
		c.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Comparator) {
		c.now = now
	}
}

func NewComparator(opts ...Option) *Comparator {
	c := &Comparator{
		textDiffer:       text.NewWordDiff(),
		comparisonBudget: deadline.ComparisonBudget,
		pixelBudget:      deadline.PixelDifferenceBudget,
		duration:         noop.Int64Histogram{},
		logger:           slog.Default(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compare normalizes a and b onto a shared canvas and runs the pixel
// difference, both palettes and, in ModeFull, text recognition on it.
// Failures of a stage are reported inside the session; only a comparison
// that is already running on c makes Compare return an error.
func (c *Comparator) Compare(ctx context.Context, a image.Image, b image.Image, mode diffimage.Mode) (*Session, error) {
	if !c.mu.TryLock() {
		return nil, ErrComparisonInProgress
	}
	defer c.mu.Unlock()

	ctx, span := tracer.Start(ctx, "Compare", trace.WithAttributes(attribute.String("mode", mode.String())))
	defer span.End()

	session := &Session{
		Mode:      mode,
		StartedAt: c.now(),
	}
	defer func() {
		session.Elapsed = c.now().Sub(session.StartedAt)
		c.duration.Record(ctx, session.Elapsed.Milliseconds(), metric.WithAttributes(
			attribute.Key("mode").String(mode.String()),
		))
	}()

	ctx, cancel := deadline.WithBudget(ctx, c.comparisonBudget)
	defer cancel()

	canvas, err := diffimage.Normalize(a, b)
	if err != nil {
		session.Difference = diffimage.FailedResult(err)
		session.PaletteA = diffimage.Palette{}
		session.PaletteB = diffimage.Palette{}
		c.finish(ctx, session)
		return session, nil
	}
	session.Canvas = canvas

	var eg errgroup.Group
	eg.Go(func() error {
		session.Difference = c.difference(ctx, canvas, mode)
		return nil
	})
	eg.Go(func() error {
		session.PaletteA = diffimage.ExtractPalette(canvas.A)
		return nil
	})
	eg.Go(func() error {
		session.PaletteB = diffimage.ExtractPalette(canvas.B)
		return nil
	})
	if mode == diffimage.ModeFull && c.recognizer != nil {
		eg.Go(func() error {
			comparison, err := c.recognizeText(ctx, canvas)
			if err != nil {
				c.logger.WarnContext(ctx, "text recognition failed, skipping text comparison", "error", err)
				return nil
			}
			session.Text = comparison
			return nil
		})
	}
	_ = eg.Wait()

	if !session.Difference.Failed() {
		session.Regions = diffimage.FindRegions(session.Difference.Image)
	}
	c.finish(ctx, session)
	return session, nil
}

func (c *Comparator) finish(ctx context.Context, session *Session) {
	if session.Mode == diffimage.ModeFast {
		session.Message = MessageFast
		if session.Difference.Failed() {
			session.Message = MessageBasic
		}
	}

	if session.Difference.Failed() {
		c.logger.WarnContext(ctx, "pixel difference failed", "mode", session.Mode.String(), "error", session.Difference.Error)
		return
	}
	c.logger.DebugContext(ctx, "comparison completed",
		"mode", session.Mode.String(),
		"width", session.Canvas.Width,
		"height", session.Canvas.Height,
		"percentage", session.Difference.Percentage,
		"samplingFactor", session.Difference.SamplingFactor,
		"regions", len(session.Regions),
	)
}

// difference runs the pixel engine under the comparison context. In
// ModeFull the pixel budget is a second, independent deadline merged with
// it, so whichever budget elapses first ends the stage.
func (c *Comparator) difference(ctx context.Context, canvas *diffimage.Canvas, mode diffimage.Mode) *diffimage.DiffResult {
	ctx, span := tracer.Start(ctx, "PixelDifference")
	defer span.End()

	stageCtx := ctx
	if mode == diffimage.ModeFull {
		pixelCtx, cancelPixel := deadline.WithBudget(context.WithoutCancel(ctx), c.pixelBudget)
		defer cancelPixel()

		merged, cancel := deadline.Merge(ctx, pixelCtx)
		defer cancel()
		stageCtx = merged
	}

	differ := diffimage.NewPixelDiff(mode, c.pixelOptions...)
	result, err := deadline.Race(stageCtx, func(ctx context.Context) (*diffimage.DiffResult, error) {
		return differ.Calculate(ctx, canvas.A, canvas.B), nil
	})
	if err != nil {
		return diffimage.FailedResult(err)
	}
	return result
}

func (c *Comparator) recognizeText(ctx context.Context, canvas *diffimage.Canvas) (*TextComparison, error) {
	ctx, span := tracer.Start(ctx, "RecognizeText")
	defer span.End()

	var recognitionA, recognitionB *Recognition
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		r, err := c.recognizer.Recognize(egCtx, canvas.A)
		if err != nil {
			return xerrors.Errorf("failed to recognize text of the baseline: %w", err)
		}
		if r == nil {
			return xerrors.Errorf("failed to recognize text of the baseline: %w", ErrNoRecognition)
		}
		recognitionA = r
		return nil
	})
	eg.Go(func() error {
		r, err := c.recognizer.Recognize(egCtx, canvas.B)
		if err != nil {
			return xerrors.Errorf("failed to recognize text of the target: %w", err)
		}
		if r == nil {
			return xerrors.Errorf("failed to recognize text of the target: %w", ErrNoRecognition)
		}
		recognitionB = r
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := c.textDiffer.Calculate(recognitionA.Text, recognitionB.Text)
	return &TextComparison{
		TextA:      strings.TrimSpace(recognitionA.Text),
		TextB:      strings.TrimSpace(recognitionB.Text),
		Similarity: result.Similarity,
		WordsA:     recognitionA.Words,
		WordsB:     recognitionB.Words,
		Changes:    result.Changes,
		Lines:      result.Lines,
	}, nil
}
