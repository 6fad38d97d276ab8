// Package plugin runs ordered, fault-isolated lifecycle hooks around the
// render and submit flow of a form instance.
//
// A Plugin only has to report a Name. Each hook is a separate small interface
// (Initializer, BeforeRenderer, ...); the Pipeline computes a Capability set
// at registration and dispatches on that set alone. An error or panic raised
// by one plugin's hook is wrapped in a PluginHookError, logged, routed to the
// same plugin's OnError and never stops the remaining plugins.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formengine/pkg/formconfig"
)

// Plugin is a lifecycle participant.
type Plugin interface {
	Name() string
}

// Initializer runs once when the form configuration is ready.
type Initializer interface {
	Initialize(ctx context.Context, pc *Context) error
}

// BeforeRenderer may rewrite the configuration. Returning nil keeps the
// input.
type BeforeRenderer interface {
	BeforeRender(ctx context.Context, cfg *formconfig.FormConfig) (*formconfig.FormConfig, error)
}

// AfterRenderer observes a rendered form instance.
type AfterRenderer interface {
	AfterRender(ctx context.Context, pc *Context) error
}

// BeforeSubmitter may transform submitted values. Returning nil keeps the
// input.
type BeforeSubmitter interface {
	BeforeSubmit(ctx context.Context, values map[string]any) (map[string]any, error)
}

// AfterSubmitter observes a completed submission.
type AfterSubmitter interface {
	AfterSubmit(ctx context.Context, values map[string]any, response any) error
}

// ErrorHandler receives errors raised by the plugin's own hooks and errors
// broadcast by the form runtime.
type ErrorHandler interface {
	OnError(ctx context.Context, err error)
}

// Disposer releases resources when the form instance is torn down.
type Disposer interface {
	Dispose(ctx context.Context) error
}

// Capable lets a plugin narrow the hooks it participates in.
type Capable interface {
	Capabilities() Capability
}

// Capability is a set of hooks.
type Capability uint8

const (
	CapInitialize Capability = 1 << iota
	CapBeforeRender
	CapAfterRender
	CapBeforeSubmit
	CapAfterSubmit
	CapOnError
	CapDispose
)

// Hook names used in PluginHookError and logs.
const (
	HookInitialize   = "initialize"
	HookBeforeRender = "beforeRender"
	HookAfterRender  = "afterRender"
	HookBeforeSubmit = "beforeSubmit"
	HookAfterSubmit  = "afterSubmit"
	HookOnError      = "onError"
	HookDispose      = "dispose"
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapInitialize, HookInitialize},
	{CapBeforeRender, HookBeforeRender},
	{CapAfterRender, HookAfterRender},
	{CapBeforeSubmit, HookBeforeSubmit},
	{CapAfterSubmit, HookAfterSubmit},
	{CapOnError, HookOnError},
	{CapDispose, HookDispose},
}

// Has reports whether every capability in other is present.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var names []string
	for _, entry := range capabilityNames {
		if c.Has(entry.cap) {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, "|")
}

// Implemented returns the capabilities p provides through hook interfaces.
func Implemented(p Plugin) Capability {
	var c Capability
	if _, ok := p.(Initializer); ok {
		c |= CapInitialize
	}
	if _, ok := p.(BeforeRenderer); ok {
		c |= CapBeforeRender
	}
	if _, ok := p.(AfterRenderer); ok {
		c |= CapAfterRender
	}
	if _, ok := p.(BeforeSubmitter); ok {
		c |= CapBeforeSubmit
	}
	if _, ok := p.(AfterSubmitter); ok {
		c |= CapAfterSubmit
	}
	if _, ok := p.(ErrorHandler); ok {
		c |= CapOnError
	}
	if _, ok := p.(Disposer); ok {
		c |= CapDispose
	}
	return c
}

// PluginHookError wraps a failure raised inside a plugin hook.
type PluginHookError struct {
	Plugin string
	Hook   string
	Err    error
}

func (e *PluginHookError) Error() string {
	return fmt.Sprintf("plugin: %s %s hook: %v", e.Plugin, e.Hook, e.Err)
}

func (e *PluginHookError) Unwrap() error { return e.Err }

// HookErrors collects the hook failures of one lifecycle point.
type HookErrors []*PluginHookError

// Err returns nil when empty, otherwise the failures joined with
// errors.Join.
func (h HookErrors) Err() error {
	if len(h) == 0 {
		return nil
	}
	errs := make([]error, len(h))
	for i, e := range h {
		errs[i] = e
	}
	return errors.Join(errs...)
}
