package publishers

import (
	"context"
	"errors"
	"testing"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Close() error { s.closed = true; return nil }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	ok := &stubPublisher{id: "ok", typ: "http"}
	bad := &stubPublisher{id: "bad", typ: "sqs", err: errors.New("failed")}
	fanout := NewFanout([]Publisher{bad, nil, ok})

	count, err := fanout.Publish(context.Background(), Event{})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if ok.calls != 1 {
		t.Fatalf("failing publisher must not block the others")
	}
	if fanout.Size() != 2 {
		t.Fatalf("expected nil publisher to be dropped, size=%d", fanout.Size())
	}
}

func TestFanoutCloseClosesAll(t *testing.T) {
	a, b := &stubPublisher{id: "a"}, &stubPublisher{id: "b"}
	if err := NewFanout([]Publisher{a, b}).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatalf("expected both publishers closed")
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	pubs, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{
		sanitizePublisherConfig(PublisherConfig{ID: "http", Type: TypeHTTP, HTTP: &HTTPConfig{URL: "https://example.com"}}),
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 || pubs[0].Type() != TypeHTTP {
		t.Fatalf("expected 1 http publisher, got %#v", pubs)
	}
}

func TestBuildAllUnknownType(t *testing.T) {
	reg := NewRegistry(nil)
	if _, err := BuildAll(context.Background(), reg, []PublisherConfig{{ID: "x", Type: "kafka"}}, nil); err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}
