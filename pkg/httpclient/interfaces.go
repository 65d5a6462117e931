package httpclient

import "context"

// Response is a fully read HTTP response; the body is already drained and closed.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP GETs so the fetcher can be driven by fakes in tests.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
