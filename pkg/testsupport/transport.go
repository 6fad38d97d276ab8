package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-formengine/pkg/transport"
)

// Reply is a canned response for StubTransport.
type Reply struct {
	Status int
	Body   any
	Err    error
}

// StubTransport records every request and answers from a per-URL reply
// table. Requests without a reply get a 404.
type StubTransport struct {
	mu       sync.Mutex
	replies  map[string]Reply
	requests []transport.Request
}

var _ transport.Transport = (*StubTransport)(nil)

// NewStubTransport returns an empty stub.
func NewStubTransport() *StubTransport {
	return &StubTransport{replies: make(map[string]Reply)}
}

// Reply registers the response returned for url. Body values that are not
// []byte or string are JSON encoded.
func (s *StubTransport) Reply(url string, reply Reply) *StubTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[url] = reply
	return s
}

// Do implements transport.Transport.
func (s *StubTransport) Do(_ context.Context, req *transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *req
	copied.Body = append([]byte(nil), req.Body...)
	s.requests = append(s.requests, copied)

	reply, ok := s.replies[req.URL]
	if !ok {
		return &transport.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found", Header: http.Header{}}, nil
	}
	if reply.Err != nil {
		return nil, reply.Err
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	var body []byte
	header := http.Header{}
	switch v := reply.Body.(type) {
	case nil:
	case []byte:
		body = v
	case string:
		body = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("testsupport: encode reply: %w", err)
		}
		body = encoded
		header.Set("Content-Type", "application/json")
	}
	return &transport.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     header,
		Body:       body,
	}, nil
}

// Requests returns a copy of the recorded requests.
func (s *StubTransport) Requests() []transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.Request(nil), s.requests...)
}

// Count returns how many requests were issued.
func (s *StubTransport) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastBody decodes the body of the most recent request into a map.
func (s *StubTransport) LastBody(t *testing.T) map[string]any {
	t.Helper()

	reqs := s.Requests()
	if len(reqs) == 0 {
		t.Fatalf("no requests recorded")
	}
	var out map[string]any
	if err := json.Unmarshal(reqs[len(reqs)-1].Body, &out); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return out
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
