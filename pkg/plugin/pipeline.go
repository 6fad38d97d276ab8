package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/logger"
)

// State is a pipeline lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateActive
	StateSubmitting
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateSubmitting:
		return "submitting"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidState reports a lifecycle transition that is not allowed from the
// current state.
var ErrInvalidState = errors.New("plugin: invalid lifecycle state")

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for hook failures.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger.OrNop(l)
	}
}

type entry struct {
	plugin Plugin
	caps   Capability
}

// Pipeline dispatches lifecycle hooks in registration order.
type Pipeline struct {
	mu      sync.RWMutex
	entries []entry
	state   State
	logger  logger.Logger
}

// NewPipeline builds an empty pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{logger: logger.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Register appends plugins. Names must be unique and declared capabilities
// must be implemented.
func (p *Pipeline) Register(plugins ...Plugin) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateDisposed {
		return fmt.Errorf("%w: register after dispose", ErrInvalidState)
	}
	for _, pl := range plugins {
		if pl == nil {
			return errors.New("plugin: plugin is required")
		}
		name := strings.TrimSpace(pl.Name())
		if name == "" {
			return errors.New("plugin: plugin name is required")
		}
		for _, e := range p.entries {
			if e.plugin.Name() == name {
				return fmt.Errorf("plugin: %q already registered", name)
			}
		}
		implemented := Implemented(pl)
		caps := implemented
		if capable, ok := pl.(Capable); ok {
			declared := capable.Capabilities()
			if missing := declared &^ implemented; missing != 0 {
				return fmt.Errorf("plugin: %q declares %s but does not implement it", name, missing)
			}
			caps = declared
		}
		p.entries = append(p.entries, entry{plugin: pl, caps: caps})
	}
	return nil
}

// MustRegister panics on registration failure.
func (p *Pipeline) MustRegister(plugins ...Plugin) {
	if err := p.Register(plugins...); err != nil {
		panic(err)
	}
}

// Names lists the registered plugins in order.
func (p *Pipeline) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.plugin.Name()
	}
	return out
}

// Capabilities returns the dispatch set of the named plugin.
func (p *Pipeline) Capabilities(name string) (Capability, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.entries {
		if e.plugin.Name() == name {
			return e.caps, true
		}
	}
	return 0, false
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pipeline) transition(from []State, to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range from {
		if p.state == s {
			p.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, p.state, to)
}

func (p *Pipeline) snapshot(c Capability) []entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state == StateDisposed {
		return nil
	}
	out := make([]entry, 0, len(p.entries))
	for _, e := range p.entries {
		if e.caps.Has(c) {
			out = append(out, e)
		}
	}
	return out
}

// Initialize runs every initializer once and moves the pipeline to Active.
func (p *Pipeline) Initialize(ctx context.Context, pc *Context) (HookErrors, error) {
	if err := p.transition([]State{StateUninitialized}, StateInitializing); err != nil {
		return nil, err
	}
	var errs HookErrors
	for _, e := range p.snapshot(CapInitialize) {
		hook := e.plugin.(Initializer)
		if herr := p.call(ctx, e, HookInitialize, func() error { return hook.Initialize(ctx, pc) }); herr != nil {
			errs = append(errs, herr)
		}
	}
	if err := p.transition([]State{StateInitializing}, StateActive); err != nil {
		return errs, err
	}
	return errs, nil
}

// BeforeRender chains configuration rewrites. A failing plugin leaves the
// previous configuration in place.
func (p *Pipeline) BeforeRender(ctx context.Context, cfg *formconfig.FormConfig) (*formconfig.FormConfig, HookErrors) {
	var errs HookErrors
	current := cfg
	for _, e := range p.snapshot(CapBeforeRender) {
		hook := e.plugin.(BeforeRenderer)
		var next *formconfig.FormConfig
		herr := p.call(ctx, e, HookBeforeRender, func() error {
			out, err := hook.BeforeRender(ctx, current)
			next = out
			return err
		})
		if herr != nil {
			errs = append(errs, herr)
			continue
		}
		if next != nil {
			current = next
		}
	}
	return current, errs
}

// AfterRender notifies every observer.
func (p *Pipeline) AfterRender(ctx context.Context, pc *Context) HookErrors {
	var errs HookErrors
	for _, e := range p.snapshot(CapAfterRender) {
		hook := e.plugin.(AfterRenderer)
		if herr := p.call(ctx, e, HookAfterRender, func() error { return hook.AfterRender(ctx, pc) }); herr != nil {
			errs = append(errs, herr)
		}
	}
	return errs
}

// BeginSubmit moves an Active pipeline to Submitting.
func (p *Pipeline) BeginSubmit() error {
	return p.transition([]State{StateActive}, StateSubmitting)
}

// EndSubmit returns a Submitting pipeline to Active.
func (p *Pipeline) EndSubmit() error {
	return p.transition([]State{StateSubmitting}, StateActive)
}

// BeforeSubmit chains value transforms. A failing plugin leaves the last
// successfully transformed values in place.
func (p *Pipeline) BeforeSubmit(ctx context.Context, values map[string]any) (map[string]any, HookErrors) {
	var errs HookErrors
	current := values
	for _, e := range p.snapshot(CapBeforeSubmit) {
		hook := e.plugin.(BeforeSubmitter)
		var next map[string]any
		herr := p.call(ctx, e, HookBeforeSubmit, func() error {
			out, err := hook.BeforeSubmit(ctx, current)
			next = out
			return err
		})
		if herr != nil {
			errs = append(errs, herr)
			continue
		}
		if next != nil {
			current = next
		}
	}
	return current, errs
}

// AfterSubmit notifies every observer of a completed submission.
func (p *Pipeline) AfterSubmit(ctx context.Context, values map[string]any, response any) HookErrors {
	var errs HookErrors
	for _, e := range p.snapshot(CapAfterSubmit) {
		hook := e.plugin.(AfterSubmitter)
		if herr := p.call(ctx, e, HookAfterSubmit, func() error { return hook.AfterSubmit(ctx, values, response) }); herr != nil {
			errs = append(errs, herr)
		}
	}
	return errs
}

// OnError broadcasts err to every error handler.
func (p *Pipeline) OnError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	for _, e := range p.snapshot(CapOnError) {
		p.notifyError(ctx, e, err)
	}
}

// Dispose runs every disposer and moves the pipeline to Disposed. Later
// hook calls are no-ops.
func (p *Pipeline) Dispose(ctx context.Context) (HookErrors, error) {
	entries := p.snapshot(CapDispose)
	if err := p.transition([]State{StateUninitialized, StateInitializing, StateActive, StateSubmitting}, StateDisposed); err != nil {
		return nil, err
	}
	var errs HookErrors
	for _, e := range entries {
		hook := e.plugin.(Disposer)
		if herr := p.call(ctx, e, HookDispose, func() error { return hook.Dispose(ctx) }); herr != nil {
			errs = append(errs, herr)
		}
	}
	return errs, nil
}

// call runs fn, converting errors and panics into a PluginHookError that is
// logged and routed to the plugin's own error handler.
func (p *Pipeline) call(ctx context.Context, e entry, hook string, fn func() error) *PluginHookError {
	err := protect(fn)
	if err == nil {
		return nil
	}
	herr := &PluginHookError{Plugin: e.plugin.Name(), Hook: hook, Err: err}
	p.logger.Error("plugin hook failed", "plugin", herr.Plugin, "hook", hook, "error", err)
	if e.caps.Has(CapOnError) {
		p.notifyError(ctx, e, herr)
	}
	return herr
}

func (p *Pipeline) notifyError(ctx context.Context, e entry, err error) {
	handler := e.plugin.(ErrorHandler)
	if perr := protect(func() error { handler.OnError(ctx, err); return nil }); perr != nil {
		p.logger.Error("plugin error handler failed", "plugin", e.plugin.Name(), "error", perr)
	}
}

func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
