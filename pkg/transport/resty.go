package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Option customises the resty-backed Client.
type Option func(*Client)

// WithTimeout bounds every request. Zero leaves the client without a timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRestyClient injects a preconfigured resty client.
func WithRestyClient(client *resty.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithDefaultHeader sets a header sent with every request unless the request
// overrides it.
func WithDefaultHeader(name, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[name] = value
	}
}

// WithRetry enables resty retries for transport-level failures.
func WithRetry(count int, wait time.Duration) Option {
	return func(c *Client) {
		c.retries = count
		c.retryWait = wait
	}
}

// Client implements Transport on top of github.com/go-resty/resty/v2.
type Client struct {
	client    *resty.Client
	timeout   time.Duration
	headers   map[string]string
	retries   int
	retryWait time.Duration
}

var _ Transport = (*Client)(nil)

// New constructs a Client applying the provided options.
func New(options ...Option) *Client {
	c := &Client{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.client == nil {
		c.client = resty.New()
	}
	if c.timeout > 0 {
		c.client.SetTimeout(c.timeout)
	}
	if len(c.headers) > 0 {
		c.client.SetHeaders(c.headers)
	}
	if c.retries > 0 {
		c.client.SetRetryCount(c.retries)
		if c.retryWait > 0 {
			c.client.SetRetryWaitTime(c.retryWait)
		}
	}
	return c
}

// Do executes req and returns the raw response. Only transport failures
// (connection errors, cancelled contexts) produce an error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("transport: request is nil")
	}
	if req.URL == "" {
		return nil, errors.New("transport: url is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := NormalizeMethod(req.Method, "GET")
	r := c.client.R().SetContext(ctx)
	if len(req.Header) > 0 {
		r.SetHeaders(req.Header)
	}
	if len(req.Body) > 0 {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(method, req.URL)
	if err != nil {
		return nil, fmt.Errorf("transport: %s %s: %w", method, req.URL, err)
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}
