package retry

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/xerrors"
)

// Transport retries requests on the responses and errors selected by
// RetryOn. Requests with a body are retried only when GetBody is set, as
// it is for requests built by http.NewRequest from an in-memory reader.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
	Logger        *slog.Logger
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()

	for retryCount := uint(0); ; retryCount++ {
		attempt := request
		if retryCount > 0 {
			var err error
			if attempt, err = rewind(request); err != nil {
				return nil, err
			}
		}

		sleep, exceeded := t.retryStrategy().Sleep(retryCount)
		response, err := t.base().RoundTrip(attempt)
		if exceeded || t.RetryOn == nil {
			return response, err
		}

		if err != nil {
			if !t.RetryOn.CheckError(err) {
				return nil, err
			}
			t.logger().DebugContext(ctx, "retrying request", "url", request.URL.String(), "retryCount", retryCount+1, "error", err)
		} else {
			if !t.RetryOn.CheckResponse(response) {
				return response, nil
			}
			if after, ok := RetryAfter(response, time.Now()); ok {
				sleep = max(sleep, after)
			}
			t.logger().DebugContext(ctx, "retrying request", "url", request.URL.String(), "retryCount", retryCount+1, "status", response.StatusCode)
			_, _ = io.Copy(io.Discard, response.Body)
			_ = response.Body.Close()
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func rewind(request *http.Request) (*http.Request, error) {
	if request.Body == nil || request.Body == http.NoBody {
		return request, nil
	}
	if request.GetBody == nil {
		return nil, xerrors.Errorf("cannot retry %s %s: request body is not replayable", request.Method, request.URL)
	}

	body, err := request.GetBody()
	if err != nil {
		return nil, xerrors.Errorf("failed to rewind request body: %w", err)
	}
	clone := request.Clone(request.Context())
	clone.Body = body
	return clone, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}
