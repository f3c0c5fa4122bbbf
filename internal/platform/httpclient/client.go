// Package httpclient wraps net/http with the cross-cutting upstream
// policies shared by every provider client: rate limiting, retry with
// exponential backoff, and circuit breaking.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Client is an HTTP client with rate limiting, retries, and a circuit
// breaker per upstream.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	maxElapsed time.Duration
}

// Options holds settings for a new Client.
type Options struct {
	Name              string // breaker name, usually the provider
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetryElapsed   time.Duration
}

// New creates a client with the given options, applying defaults for
// anything unset.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerMinute == 0 {
		opts.RequestsPerMinute = 30
	}
	if opts.MaxRetryElapsed == 0 {
		opts.MaxRetryElapsed = 8 * time.Second
	}
	if opts.Name == "" {
		opts.Name = "upstream"
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	interval := time.Minute / time.Duration(opts.RequestsPerMinute)
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Every(interval), opts.RequestsPerMinute),
		breaker:    breaker,
		maxElapsed: opts.MaxRetryElapsed,
	}
}

// Do performs the request with rate limiting, retry on transient
// failure, and circuit breaking. Callers own the response body.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var resp *http.Response
		operation := func() error {
			var err error
			resp, err = c.httpClient.Do(req.Clone(ctx))
			if err != nil {
				return err
			}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return &StatusError{StatusCode: resp.StatusCode}
			}
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return backoff.Permanent(&StatusError{StatusCode: resp.StatusCode})
			}
			return nil
		}

		strategy := backoff.NewExponentialBackOff()
		strategy.MaxElapsedTime = c.maxElapsed
		if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// StatusError reports a non-200 HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}
