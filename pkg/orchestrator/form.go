package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"dario.cat/mergo"
	"github.com/mohae/deepcopy"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formengine/pkg/deps"
	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/funcs"
	"github.com/goliatone/go-formengine/pkg/logger"
	"github.com/goliatone/go-formengine/pkg/plugin"
	"github.com/goliatone/go-formengine/pkg/remote"
	"github.com/goliatone/go-formengine/pkg/submission"
	"github.com/goliatone/go-formengine/pkg/transport"
	"github.com/goliatone/go-formengine/pkg/validation"
	"github.com/goliatone/go-formengine/pkg/visibility"
	vexpr "github.com/goliatone/go-formengine/pkg/visibility/expr"
	"github.com/goliatone/go-formengine/pkg/widgets"
)

// ErrNotMounted is returned by operations that need a mounted form.
var ErrNotMounted = errors.New("orchestrator: form is not mounted")

// Form is one live instance of a form configuration.
type Form struct {
	source     *formconfig.FormConfig
	pluginList []plugin.Plugin

	rules     *validation.Registry
	funcs     *funcs.Registry
	widgets   *widgets.Registry
	loader    *remote.Loader
	transport transport.Transport
	logger    logger.Logger
	seed      map[string]any
	extras    map[string]any
	onSubmit  func(values map[string]any, response any)
	onCancel  func()
	handlers  map[string]Handler

	plugins   *plugin.Pipeline
	resolver  *visibility.Resolver
	synth     *funcs.Synthesizer
	submitter *submission.Pipeline

	mu         sync.RWMutex
	cfg        *formconfig.FormConfig
	graph      *deps.Graph
	pc         *plugin.Context
	values     map[string]any
	initial    map[string]any
	states     map[string]FieldState
	options    map[string][]formconfig.Option
	hookErrors plugin.HookErrors
	disposed   bool
}

var _ plugin.Host = (*Form)(nil)

// New builds a form instance for cfg. Plugins are registered immediately;
// nothing else runs until Mount.
func New(cfg *formconfig.FormConfig, opts ...Option) (*Form, error) {
	if cfg == nil {
		return nil, errors.New("orchestrator: config is required")
	}
	f := &Form{
		source:   cfg,
		rules:    validation.NewRegistry(),
		logger:   logger.Nop(),
		handlers: make(map[string]Handler),
		values:   map[string]any{},
		states:   make(map[string]FieldState),
		options:  make(map[string][]formconfig.Option),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	if f.widgets == nil {
		f.widgets = widgets.NewRegistry(widgets.WithLogger(f.logger))
	}
	if f.loader == nil && f.transport != nil {
		f.loader = remote.New(f.transport, remote.Options{}, remote.WithLogger(f.logger))
	}
	f.plugins = plugin.NewPipeline(plugin.WithLogger(f.logger))
	if err := f.plugins.Register(f.pluginList...); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	f.resolver = visibility.NewResolver(vexpr.New(), visibility.WithLogger(f.logger))
	f.synth = funcs.NewSynthesizer(funcs.WithRegistry(f.funcs), funcs.WithLogger(f.logger))
	f.submitter = submission.New(f.transport, f.rules, submission.WithLogger(f.logger))
	return f, nil
}

// Mount runs the render lifecycle: the before-render chain on a copy of the
// configuration, dependency graph construction, plugin initialization, the
// first state computation, option loading and the after-render hooks.
func (f *Form) Mount(ctx context.Context) error {
	if f.plugins.State() != plugin.StateUninitialized {
		return fmt.Errorf("%w: mount from %s", plugin.ErrInvalidState, f.plugins.State())
	}

	rendered, herrs := f.plugins.BeforeRender(ctx, f.source.Clone())
	if res := formconfig.Validate(rendered); !res.Valid {
		return &formconfig.ValidationError{Errors: res.Errors}
	}

	graph := deps.Build(rendered.Fields)
	for _, cycle := range graph.Cycles() {
		f.logger.Warn("dependency cycle", "form", rendered.FormID, "fields", cycle)
	}

	values, err := initialValues(rendered, f.seed)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.cfg = rendered
	f.graph = graph
	f.values = values
	f.initial = formconfig.CloneValues(values)
	f.pc = plugin.NewContext(rendered.FormID, f)
	f.hookErrors = herrs
	pc := f.pc
	f.mu.Unlock()

	initErrs, err := f.plugins.Initialize(ctx, pc)
	f.recordHookErrors(initErrs)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.recomputeLocked(rendered.FieldPaths())
	f.mu.Unlock()

	f.loadURLOptions(ctx)
	f.recordHookErrors(f.plugins.AfterRender(ctx, pc))
	return nil
}

// initialValues collects field defaults and merges seed over them.
func initialValues(cfg *formconfig.FormConfig, seed map[string]any) (map[string]any, error) {
	values := map[string]any{}
	formconfig.Walk(cfg.Fields, func(path string, field *formconfig.FieldConfig) bool {
		if field.Type != formconfig.FieldGroup && field.DefaultValue != nil {
			formconfig.SetValue(values, path, deepcopy.Copy(field.DefaultValue))
		}
		return true
	})
	if len(seed) > 0 {
		if err := mergo.Merge(&values, formconfig.CloneValues(seed), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("orchestrator: merge initial values: %w", err)
		}
	}
	return values, nil
}

func (f *Form) recordHookErrors(errs plugin.HookErrors) {
	if len(errs) == 0 {
		return
	}
	f.mu.Lock()
	f.hookErrors = append(f.hookErrors, errs...)
	f.mu.Unlock()
}

// HookErrors returns the plugin hook failures collected during mount.
func (f *Form) HookErrors() plugin.HookErrors {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append(plugin.HookErrors(nil), f.hookErrors...)
}

// State returns the lifecycle state.
func (f *Form) State() plugin.State { return f.plugins.State() }

// Graph returns the dependency graph built at mount.
func (f *Form) Graph() *deps.Graph {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.graph
}

// Context returns the plugin context, nil before mount.
func (f *Form) Context() *plugin.Context {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pc
}

// Config returns the rendered configuration, or the source configuration
// before mount.
func (f *Form) Config() *formconfig.FormConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.cfg != nil {
		return f.cfg
	}
	return f.source
}

// Values returns a copy of the current values.
func (f *Form) Values() map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return formconfig.CloneValues(f.values)
}

// Value reads the value at a dotted path.
func (f *Form) Value(path string) any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return vexpr.Lookup(f.values, path)
}

// SetValues writes dotted-path values, recomputes the state of every field
// that depends on them and notifies value listeners. It returns the
// recomputed paths.
func (f *Form) SetValues(ctx context.Context, changes map[string]any) ([]string, error) {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: form is disposed", plugin.ErrInvalidState)
	}
	changed := make([]string, 0, len(changes))
	for path, value := range changes {
		formconfig.SetValue(f.values, path, value)
		changed = append(changed, path)
	}
	sort.Strings(changed)

	var recalculated []string
	if f.graph != nil {
		recalculated = f.graph.FieldsToRecalculate(changed)
		f.recomputeLocked(recalculated)
	}
	all := formconfig.CloneValues(f.values)
	pc := f.pc
	f.mu.Unlock()

	if pc != nil {
		written := make(map[string]any, len(changes))
		for k, v := range changes {
			written[k] = v
		}
		pc.NotifyValuesChange(ctx, written, all)
	}
	return recalculated, nil
}

// SetFieldOptions replaces the option list of the field at path. Calls after
// Dispose are ignored.
func (f *Form) SetFieldOptions(path string, options []formconfig.Option) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disposed {
		return nil
	}
	cfg := f.cfg
	if cfg == nil {
		cfg = f.source
	}
	if _, ok := cfg.Field(path); !ok {
		return fmt.Errorf("orchestrator: field %q not found", path)
	}
	if options == nil {
		options = []formconfig.Option{}
	}
	f.options[path] = options
	if state, ok := f.states[path]; ok {
		state.Options = options
		f.states[path] = state
	}
	return nil
}

// Validate checks every visible field and returns the failures by path.
func (f *Form) Validate(ctx context.Context) map[string][]string {
	f.mu.RLock()
	cfg := f.cfg
	values := formconfig.CloneValues(f.values)
	hidden := f.hiddenLocked()
	f.mu.RUnlock()
	if cfg == nil {
		cfg = f.source
	}
	return f.rules.Validate(ctx, cfg, values, hidden)
}

// Submit validates and submits the current values. The submit button is
// disabled while a submission runs.
func (f *Form) Submit(ctx context.Context) error {
	if err := f.plugins.BeginSubmit(); err != nil {
		if f.plugins.State() == plugin.StateUninitialized {
			return ErrNotMounted
		}
		return err
	}
	defer func() {
		if err := f.plugins.EndSubmit(); err != nil {
			f.logger.Warn("submit state not restored", "error", err)
		}
	}()

	f.mu.RLock()
	req := submission.Request{
		Config:     f.cfg,
		Values:     formconfig.CloneValues(f.values),
		Hidden:     f.hiddenLocked(),
		Plugins:    f.plugins,
		OnComplete: f.onSubmit,
	}
	f.mu.RUnlock()

	_, err := f.submitter.Submit(ctx, req)
	return err
}

// Reset restores the values captured at mount and recomputes every state.
func (f *Form) Reset(ctx context.Context) {
	f.mu.Lock()
	if f.disposed || f.cfg == nil {
		f.mu.Unlock()
		return
	}
	f.values = formconfig.CloneValues(f.initial)
	f.recomputeLocked(f.cfg.FieldPaths())
	all := formconfig.CloneValues(f.values)
	pc := f.pc
	f.mu.Unlock()

	pc.NotifyValuesChange(ctx, formconfig.FlattenValues(all), all)
}

// Dispose runs the plugin disposers. Later option loads and value writes are
// ignored or rejected.
func (f *Form) Dispose(ctx context.Context) error {
	f.mu.Lock()
	f.disposed = true
	f.mu.Unlock()

	errs, err := f.plugins.Dispose(ctx)
	if err != nil {
		return err
	}
	return errs.Err()
}

// loadURLOptions fetches every http(s) option source concurrently; each load
// only writes its own field's options.
func (f *Form) loadURLOptions(ctx context.Context) {
	f.mu.RLock()
	cfg := f.cfg
	f.mu.RUnlock()

	var g errgroup.Group
	formconfig.Walk(cfg.Fields, func(path string, field *formconfig.FieldConfig) bool {
		url, ok := field.Options.URL()
		if !ok {
			return true
		}
		if f.loader == nil {
			f.logger.Warn("no remote loader for URL options", "field", path, "url", url)
			return true
		}
		g.Go(func() error {
			options, err := f.loader.LoadURL(ctx, url)
			if err != nil {
				f.logger.Error("option source failed", "field", path, "url", url, "error", err)
				f.plugins.OnError(ctx, err)
				return nil
			}
			if err := f.SetFieldOptions(path, options); err != nil {
				f.logger.Warn("options not applied", "field", path, "error", err)
			}
			return nil
		})
		return true
	})
	_ = g.Wait()
}
