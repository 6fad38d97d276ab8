// Package remotedata fills field option lists from declared remote data
// sources. Fields whose options read "remote:<source>" are rewritten to an
// empty list before render and populated after render; sources that declare
// dependsOn reload with the new parameter whenever the watched field changes.
package remotedata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/logger"
	"github.com/goliatone/go-formengine/pkg/plugin"
	"github.com/goliatone/go-formengine/pkg/remote"
	vexpr "github.com/goliatone/go-formengine/pkg/visibility/expr"
)

// Name is the plugin name.
const Name = "remoteData"

// SharedKey is the shared context key holding the *remote.Loader.
const SharedKey = "remotedata.loader"

// Option customises the plugin.
type Option func(*Plugin)

// WithAutoLoad toggles loading every source on initialize. Defaults to true.
func WithAutoLoad(enabled bool) Option {
	return func(p *Plugin) {
		p.autoLoad = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Plugin) {
		p.logger = logger.OrNop(l)
	}
}

// Plugin binds remote sources to field options.
type Plugin struct {
	loader   *remote.Loader
	autoLoad bool
	logger   logger.Logger

	mu          sync.Mutex
	bindings    map[string]string
	last        map[string]any
	unsubscribe func()
}

var (
	_ plugin.BeforeRenderer = (*Plugin)(nil)
	_ plugin.Initializer    = (*Plugin)(nil)
	_ plugin.AfterRenderer  = (*Plugin)(nil)
	_ plugin.Disposer       = (*Plugin)(nil)
)

// New builds the plugin around loader.
func New(loader *remote.Loader, opts ...Option) *Plugin {
	p := &Plugin{
		loader:   loader,
		autoLoad: true,
		logger:   logger.Nop(),
		bindings: make(map[string]string),
		last:     make(map[string]any),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Plugin) Name() string { return Name }

// Loader returns the underlying loader.
func (p *Plugin) Loader() *remote.Loader { return p.loader }

// Bindings returns the field path to source name bindings found by the last
// BeforeRender.
func (p *Plugin) Bindings() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.bindings))
	for k, v := range p.bindings {
		out[k] = v
	}
	return out
}

// BeforeRender replaces remote option sources with empty lists and records
// which source feeds each field.
func (p *Plugin) BeforeRender(_ context.Context, cfg *formconfig.FormConfig) (*formconfig.FormConfig, error) {
	if cfg == nil {
		return nil, nil
	}
	out := cfg.Clone()
	bindings := make(map[string]string)
	formconfig.Walk(out.Fields, func(path string, field *formconfig.FieldConfig) bool {
		if name, ok := field.Options.Remote(); ok {
			bindings[path] = name
			field.Options = formconfig.InlineOptions()
		}
		return true
	})

	p.mu.Lock()
	p.bindings = bindings
	p.mu.Unlock()
	return out, nil
}

// Initialize publishes the loader, optionally warms every source and
// subscribes to value changes for dependent sources.
func (p *Plugin) Initialize(ctx context.Context, pc *plugin.Context) error {
	if p.loader == nil {
		return errors.New("remotedata: loader is required")
	}
	pc.Set(SharedKey, p.loader)

	if p.autoLoad {
		loaded := p.loader.LoadAll(ctx)
		p.logger.Debug("remote sources loaded", "form", pc.FormID(), "sources", len(loaded))
	}

	unsubscribe := pc.OnValuesChange(func(ctx context.Context, changed, _ map[string]any) {
		p.cascade(ctx, pc, changed)
	})
	p.mu.Lock()
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
	p.unsubscribe = unsubscribe
	p.mu.Unlock()
	return nil
}

// AfterRender loads the options of every bound field concurrently.
func (p *Plugin) AfterRender(ctx context.Context, pc *plugin.Context) error {
	bindings := p.Bindings()
	paths := make([]string, 0, len(bindings))
	for path := range bindings {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	for _, path := range paths {
		g.Go(func() error {
			if err := p.apply(ctx, pc, path, bindings[path], nil); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Dispose drops the value-change subscription.
func (p *Plugin) Dispose(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	return nil
}

func (p *Plugin) apply(ctx context.Context, pc *plugin.Context, path, source string, override *remote.DataSource) error {
	options, err := p.loader.Load(ctx, source, override)
	if err != nil {
		p.logger.Error("remote options failed", "field", path, "source", source, "error", err)
		return fmt.Errorf("remotedata: field %q: %w", path, err)
	}
	if err := pc.SetFieldOptions(path, options); err != nil {
		return fmt.Errorf("remotedata: field %q: %w", path, err)
	}
	return nil
}

// cascade reloads sources that depend on a changed field. Nested changes are
// matched by their dotted path. Empty values and unchanged values are ignored.
func (p *Plugin) cascade(ctx context.Context, pc *plugin.Context, changed map[string]any) {
	bindings := p.Bindings()
	for field, value := range formconfig.FlattenValues(changed) {
		names := p.loader.DependentSources(field)
		if len(names) == 0 {
			continue
		}

		p.mu.Lock()
		previous, seen := p.last[field]
		p.last[field] = value
		p.mu.Unlock()
		if (seen && vexpr.LooseEqual(previous, value)) || !vexpr.Truthy(value) {
			continue
		}

		for _, name := range names {
			src, ok := p.loader.Source(name)
			if !ok || src.DependsOn == nil {
				continue
			}
			override := src.WithParam(src.DependsOn.ParamName(), value)
			for _, path := range boundTo(bindings, name) {
				if err := p.apply(ctx, pc, path, name, &override); err != nil {
					p.logger.Warn("dependent options not refreshed", "field", path, "trigger", field, "error", err)
				}
			}
		}
	}
}

func boundTo(bindings map[string]string, source string) []string {
	var out []string
	for path, name := range bindings {
		if name == source {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}
