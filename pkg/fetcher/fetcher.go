package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/samvad-hq/samvad-orbit-reporter/internal/metrics"
	"github.com/samvad-hq/samvad-orbit-reporter/pkg/httpclient"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultRetryBackoff = 250 * time.Millisecond

	// MaxRetries caps the retries of a single Fetch call.
	MaxRetries = 1
)

// Logger defines the logging surface the fetcher relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}

// Options tunes a Fetcher. Zero values fall back to the defaults.
type Options struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Headers      map[string]string
	Logger       Logger
}

// Fetcher performs a single GET (plus at most one retry) and returns the full body.
type Fetcher struct {
	client       httpclient.Client
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	headers      map[string]string
	log          Logger
}

// New builds a Fetcher. A nil client gets a resty client bounded by opts.Timeout.
func New(client httpclient.Client, opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if client == nil {
		client = httpclient.NewRestyClient(opts.Timeout)
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxRetries > MaxRetries {
		opts.MaxRetries = MaxRetries
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Fetcher{
		client:       client,
		timeout:      opts.Timeout,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		headers:      opts.Headers,
		log:          opts.Logger,
	}
}

// Fetch GETs url and returns the response body. Every failure is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.TrimSpace(url) == "" {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: errors.New("url is empty")}
	}

	var (
		body    []byte
		lastErr error
		attempt int
	)
	operation := func() error {
		attempt++
		out, err := f.fetchOnce(ctx, url)
		if err != nil {
			lastErr = err
			if !err.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		body = out
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.retryBackoff), uint64(f.maxRetries)),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		f.log.WarnObj("fetch failed, retrying", "fetch_retry", map[string]any{
			"url":     url,
			"attempt": attempt,
			"next_in": next.String(),
			"error":   err.Error(),
		})
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, classify(url, err)
	}

	f.log.DebugObj("fetch completed", "fetch_result", map[string]any{
		"url":      url,
		"attempts": attempt,
		"bytes":    len(body),
	})
	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, *FetchError) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	resp, err := f.client.Get(ctx, url, f.headers)
	if err != nil {
		fe := classify(url, err)
		observe(fe.Kind.String(), start)
		return nil, fe
	}

	body := resp.Body()
	if code := resp.StatusCode(); code < http.StatusOK || code >= http.StatusMultipleChoices {
		observe(KindHTTPStatus.String(), start)
		return nil, &FetchError{
			Kind:       KindHTTPStatus,
			URL:        url,
			StatusCode: code,
			Err:        fmt.Errorf("body: %s", responseSnippet(body)),
		}
	}

	observe("ok", start)
	return body, nil
}

func observe(outcome string, start time.Time) {
	metrics.FetchAttempts.WithLabelValues(outcome).Inc()
	metrics.FetchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
