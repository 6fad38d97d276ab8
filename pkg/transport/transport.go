// Package transport defines the request/response primitive the engine uses for
// every network call (remote option lists, remote configuration documents and
// form submission) together with a resty-backed implementation.
package transport

import (
	"context"
	"mime"
	"net/http"
	"strings"
)

// Request is a single outbound call. Header values set here override the
// client defaults.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Response carries the raw outcome of a request. Non-2xx statuses are not
// errors at this layer; callers decide how to surface them.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is in the 2xx class.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// IsJSON reports whether the response declares a JSON content type.
func (r *Response) IsJSON() bool {
	if r == nil || r.Header == nil {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Transport performs requests. Implementations must be safe for concurrent use.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function into a Transport.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do calls the underlying function.
func (fn Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return fn(ctx, req)
}

// IsReadMethod reports whether method is a read (GET) request. An empty
// method counts as GET.
func IsReadMethod(method string) bool {
	m := strings.ToUpper(strings.TrimSpace(method))
	return m == "" || m == http.MethodGet
}

// NormalizeMethod upper-cases method, substituting fallback when empty.
func NormalizeMethod(method, fallback string) string {
	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "" {
		return fallback
	}
	return m
}
