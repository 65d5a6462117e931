package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a failed fetch.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindHTTPStatus
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTPStatus:
		return "http_status"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// FetchError is returned by Fetch for every failure. StatusCode is set only for KindHTTPStatus.
type FetchError struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: http status %d: %v", e.URL, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether a second attempt may succeed. Status errors are final.
func (e *FetchError) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindTimeout
}

// classify maps a transport error onto the fetch taxonomy.
func classify(url string, err error) *FetchError {
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &FetchError{Kind: kind, URL: url, Err: err}
}
