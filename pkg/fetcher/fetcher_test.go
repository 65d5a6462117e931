package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-orbit-reporter/pkg/httpclient"
)

type fakeResponse struct {
	body       []byte
	statusCode int
}

func (f fakeResponse) Body() []byte    { return f.body }
func (f fakeResponse) StatusCode() int { return f.statusCode }

// scriptedClient replays errors/responses in order, one per call.
type scriptedClient struct {
	steps []func() (httpclient.Response, error)
	calls int
}

func (s *scriptedClient) Get(_ context.Context, _ string, _ map[string]string) (httpclient.Response, error) {
	step := s.steps[s.calls]
	s.calls++
	return step()
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":"success"}`))
	}))
	defer srv.Close()

	body, err := New(nil, Options{Timeout: time.Second}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"success"}`, string(body))
}

func TestFetchHTTPStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(nil, Options{Timeout: time.Second, MaxRetries: 1})
	_, err := f.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindHTTPStatus, fe.Kind)
	assert.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "http status 500")
}

func TestFetchRetriesNetworkErrorOnce(t *testing.T) {
	client := &scriptedClient{steps: []func() (httpclient.Response, error){
		func() (httpclient.Response, error) { return nil, errors.New("connection refused") },
		func() (httpclient.Response, error) { return fakeResponse{body: []byte("ok"), statusCode: 200}, nil },
	}}

	body, err := New(client, Options{MaxRetries: 1}).Fetch(context.Background(), "http://example.invalid")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, 2, client.calls)
}

func TestFetchGivesUpAfterSingleRetry(t *testing.T) {
	client := &scriptedClient{steps: []func() (httpclient.Response, error){
		func() (httpclient.Response, error) { return nil, timeoutErr{} },
		func() (httpclient.Response, error) { return nil, timeoutErr{} },
		func() (httpclient.Response, error) { t.Fatal("unexpected third attempt"); return nil, nil },
	}}

	// Requests above the cap are clamped to one retry.
	_, err := New(client, Options{MaxRetries: 5}).Fetch(context.Background(), "http://example.invalid")

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTimeout, fe.Kind)
	assert.True(t, fe.Retryable())
	assert.Equal(t, 2, client.calls)
}

func TestFetchWithoutRetries(t *testing.T) {
	client := &scriptedClient{steps: []func() (httpclient.Response, error){
		func() (httpclient.Response, error) { return nil, errors.New("no such host") },
	}}

	_, err := New(client, Options{MaxRetries: 0}).Fetch(context.Background(), "http://example.invalid")

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.Equal(t, 1, client.calls)
}

func TestFetchTimesOutAgainstSlowServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(nil, Options{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), srv.URL)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTimeout, fe.Kind)
}

func TestFetchRejectsEmptyURL(t *testing.T) {
	_, err := New(&scriptedClient{}, Options{}).Fetch(context.Background(), " ")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindNetwork, fe.Kind)
}

func TestResponseSnippet(t *testing.T) {
	assert.Equal(t, "<empty>", responseSnippet(nil))
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, responseSnippet(long), 515)
}
