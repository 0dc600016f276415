package myhttp

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// newServerMux returns a ServeMux whose *WithMiddleware registrations are
// traced, profiled, timed and recovered from panics. A nil histogram
// disables timing.
func newServerMux(logger *slog.Logger, httpRequestsDurationMicroSeconds metric.Int64Histogram) *myRouter {
	if logger == nil {
		logger = slog.Default()
	}
	if httpRequestsDurationMicroSeconds == nil {
		httpRequestsDurationMicroSeconds = noop.Int64Histogram{}
	}

	return &myRouter{
		ServeMux:                         http.NewServeMux(),
		logger:                           logger,
		httpRequestsDurationMicroSeconds: httpRequestsDurationMicroSeconds,
	}
}

var NewServerMux = newServerMux
