package httpclient

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// retryableStatusCodes are responses worth retrying: throttling and
// transient upstream failures.
var retryableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// RetryTransport wraps an http.RoundTripper with bounded retries. Network
// errors retry immediately; retryable status codes back off exponentially
// with jitter.
type RetryTransport struct {
	base       http.RoundTripper
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     zerolog.Logger
}

// NewRetryTransport creates a RetryTransport over base. A nil base uses
// http.DefaultTransport.
func NewRetryTransport(base http.RoundTripper, maxRetries int, baseDelay time.Duration, log zerolog.Logger) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	return &RetryTransport{
		base:       base,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   30 * time.Second,
		logger:     log.With().Str("component", "RetryTransport").Logger(),
	}
}

// RoundTrip implements http.RoundTripper.
func (rt *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= rt.maxRetries; attempt++ {
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		default:
		}

		reqClone := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			reqClone.Body = body
		}

		resp, err := rt.base.RoundTrip(reqClone)
		if err != nil {
			lastErr = err
			lastResp = nil
			if attempt < rt.maxRetries {
				rt.logger.Debug().
					Str("url", req.URL.String()).
					Int("attempt", attempt+1).
					Err(err).
					Msg("Network error, retrying")
				continue
			}
			break
		}

		lastResp = resp
		lastErr = nil

		if retryableStatusCodes[resp.StatusCode] && attempt < rt.maxRetries {
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
			if err := rt.waitForRetry(req.Context(), attempt, resp.StatusCode, req.URL.String()); err != nil {
				return nil, err
			}
			continue
		}

		return resp, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}

func (rt *RetryTransport) waitForRetry(ctx context.Context, attempt, statusCode int, url string) error {
	delay := rt.calculateDelay(attempt)

	rt.logger.Warn().
		Str("url", url).
		Int("status_code", statusCode).
		Int("attempt", attempt+1).
		Int("max_retries", rt.maxRetries).
		Dur("delay", delay).
		Msg("Retryable status, waiting before retry")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// calculateDelay returns baseDelay * 2^attempt capped at maxDelay, plus up
// to 10% jitter.
func (rt *RetryTransport) calculateDelay(attempt int) time.Duration {
	delay := rt.baseDelay
	if attempt > 0 {
		delay = rt.baseDelay * time.Duration(math.Pow(2, float64(attempt)))
	}
	if delay > rt.maxDelay {
		delay = rt.maxDelay
	}

	if tenth := int(delay.Milliseconds() / 10); tenth > 0 {
		delay += time.Duration(rand.Intn(tenth)) * time.Millisecond
	}

	return delay
}
