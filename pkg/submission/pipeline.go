// Package submission validates form values, runs the plugin before-submit
// chain and delivers the result to the configured endpoint or to a
// completion callback.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/logger"
	"github.com/goliatone/go-formengine/pkg/plugin"
	"github.com/goliatone/go-formengine/pkg/transport"
	"github.com/goliatone/go-formengine/pkg/validation"
)

// Request is one submission attempt.
type Request struct {
	Config *formconfig.FormConfig
	Values map[string]any
	// Hidden reports fields excluded from validation. Nil validates every
	// field.
	Hidden     func(path string) bool
	Plugins    *plugin.Pipeline
	OnComplete func(values map[string]any, response any)
}

// Result describes a completed submission.
type Result struct {
	Values     map[string]any
	Response   any
	Status     int
	Sent       bool
	HookErrors plugin.HookErrors
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger.OrNop(l)
	}
}

// WithHeader adds a header sent with every submission. Form-level headers
// win over it.
func WithHeader(name, value string) Option {
	return func(p *Pipeline) {
		p.headers[name] = value
	}
}

// Pipeline runs submissions.
type Pipeline struct {
	transport transport.Transport
	rules     *validation.Registry
	headers   map[string]string
	logger    logger.Logger
}

// New builds a Pipeline. A nil registry uses the built-in rules; a nil
// transport fails any configuration that declares a submit endpoint.
func New(t transport.Transport, rules *validation.Registry, opts ...Option) *Pipeline {
	if rules == nil {
		rules = validation.NewRegistry()
	}
	p := &Pipeline{
		transport: t,
		rules:     rules,
		headers:   make(map[string]string),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Submit validates, transforms and delivers req. Any returned error has
// already been offered to the plugins' error handlers.
func (p *Pipeline) Submit(ctx context.Context, req Request) (*Result, error) {
	res, err := p.submit(ctx, req)
	if err != nil {
		if req.Plugins != nil {
			req.Plugins.OnError(ctx, err)
		}
		return res, err
	}
	return res, nil
}

func (p *Pipeline) submit(ctx context.Context, req Request) (*Result, error) {
	if req.Config == nil {
		return nil, errors.New("submission: config is required")
	}
	values := req.Values
	if values == nil {
		values = map[string]any{}
	}

	if failures := p.rules.Validate(ctx, req.Config, values, req.Hidden); len(failures) > 0 {
		p.logger.Debug("submission rejected by validation", "form", req.Config.FormID, "fields", len(failures))
		return nil, &ValidationError{Fields: failures}
	}

	res := &Result{Values: values}
	if req.Plugins != nil {
		res.Values, res.HookErrors = req.Plugins.BeforeSubmit(ctx, values)
	}

	api := req.Config.API
	if api == nil || strings.TrimSpace(api.Submit) == "" {
		complete(req, res.Values, nil)
		return res, nil
	}

	response, status, err := p.send(ctx, req.Config, res.Values)
	if err != nil {
		return res, err
	}
	res.Response = response
	res.Status = status
	res.Sent = true

	if req.Plugins != nil {
		res.HookErrors = append(res.HookErrors, req.Plugins.AfterSubmit(ctx, res.Values, response)...)
	}
	complete(req, res.Values, response)
	return res, nil
}

func complete(req Request, values map[string]any, response any) {
	if req.OnComplete != nil {
		req.OnComplete(values, response)
	}
}

func (p *Pipeline) send(ctx context.Context, cfg *formconfig.FormConfig, values map[string]any) (any, int, error) {
	if p.transport == nil {
		return nil, 0, errors.New("submission: transport is required to submit to an endpoint")
	}
	api := cfg.API
	body, err := json.Marshal(values)
	if err != nil {
		return nil, 0, fmt.Errorf("submission: encode values: %w", err)
	}

	header := map[string]string{"Content-Type": "application/json"}
	for name, value := range p.headers {
		header[name] = value
	}
	for name, value := range api.Headers {
		header[name] = value
	}

	url := strings.TrimSpace(api.Submit)
	method := api.SubmitMethod()
	p.logger.Debug("submitting form", "form", cfg.FormID, "method", method, "url", url)

	resp, err := p.transport.Do(ctx, &transport.Request{
		Method: method,
		URL:    url,
		Header: header,
		Body:   body,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("submission: send to %s: %w", url, err)
	}
	if !resp.OK() {
		mapping := MapErrorPayload(cfg, DecodeErrorPayload(resp.Body))
		p.logger.Warn("submission failed", "form", cfg.FormID, "url", url, "status", resp.StatusCode)
		return nil, resp.StatusCode, &SubmitError{
			URL:         url,
			Status:      resp.StatusCode,
			Body:        resp.Body,
			FieldErrors: mapping.Fields,
			FormErrors:  mapping.Form,
		}
	}
	return decodeResponse(resp), resp.StatusCode, nil
}

// decodeResponse returns the decoded JSON body, or the body text when it is
// not JSON. An empty body decodes to nil.
func decodeResponse(resp *transport.Response) any {
	if len(resp.Body) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(resp.Body, &decoded); err == nil {
		return decoded
	}
	return string(resp.Body)
}
