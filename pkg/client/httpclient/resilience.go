package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/catalogadmin/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned instead of sending a request while the circuit breaker is open.
var ErrUnavailable = errors.New("service is temporarily unavailable")

// serverError marks a 5xx response so the breaker counts it as a failure. The response
// itself is still handed to the caller.
type serverError struct {
	resp *http.Response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.resp.StatusCode)
}

// CircuitBreakerTransport returns an http.RoundTripper that wraps requests in a circuit breaker.
// Transport errors and 5xx responses count as failures; other responses, including 4xx,
// are passed through untouched and count as successes.
func CircuitBreakerTransport(cb *gobreaker.CircuitBreaker[*http.Response], next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		resp, err := cb.Execute(func() (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= http.StatusInternalServerError {
				return resp, &serverError{resp: resp}
			}
			return resp, nil
		})
		var se *serverError
		switch {
		case errors.As(err, &se):
			return se.resp, nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, cb.Name(), err)
		}
		return resp, err
	})
}

// NewCircuitBreaker creates the breaker used by CircuitBreakerTransport. It trips after more
// than cfg.ConsecutiveFailures failures in a row, or when the error rate over more than that
// many requests exceeds cfg.ErrorRatePercent.
func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
				(counts.TotalSuccesses+counts.TotalFailures > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(counts.TotalSuccesses+counts.TotalFailures)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			// a request abandoned by the caller says nothing about the upstream
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return gobreaker.NewCircuitBreaker[*http.Response](st)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
