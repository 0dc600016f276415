package myhttp

import (
	"log/slog"
	"net/http"
	"time"
	"visual-comparator/internal/retry"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ClientConfig struct {
	Timeout       time.Duration
	MaxRetryCount uint
	BaseBackOff   time.Duration
	MaxBackOff    time.Duration
	RetryOn       *retry.On
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:       30 * time.Second,
		MaxRetryCount: 3,
		BaseBackOff:   100 * time.Millisecond,
		MaxBackOff:    5 * time.Second,
		RetryOn:       retry.NewDefaultOn(),
	}
}

// NewClient returns an HTTP client whose requests are traced and retried
// with exponential back-off. Timeout bounds the whole exchange including
// retries.
func NewClient(config ClientConfig, logger *slog.Logger) *http.Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &http.Client{
		Timeout: config.Timeout,
		Transport: otelhttp.NewTransport(&retry.Transport{
			Base:          http.DefaultTransport,
			RetryStrategy: retry.NewExponentialBackOff(config.BaseBackOff, config.MaxBackOff, config.MaxRetryCount, nil),
			RetryOn:       config.RetryOn,
			Logger:        logger,
		}),
	}
}
