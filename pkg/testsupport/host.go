package testsupport

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/plugin"
	vexpr "github.com/goliatone/go-formengine/pkg/visibility/expr"
)

// Host is an in-memory plugin.Host for plugin tests. SetValues forwards the
// change to Notify when set, mirroring the form runtime.
type Host struct {
	mu      sync.Mutex
	config  *formconfig.FormConfig
	values  map[string]any
	options map[string][]formconfig.Option
	submits int
	resets  int

	Notify func(ctx context.Context, changed, all map[string]any)
}

var _ plugin.Host = (*Host)(nil)

// NewHost returns a host around cfg with the given starting values.
func NewHost(cfg *formconfig.FormConfig, values map[string]any) *Host {
	return &Host{
		config:  cfg,
		values:  formconfig.CloneValues(values),
		options: make(map[string][]formconfig.Option),
	}
}

// Config implements plugin.Host.
func (h *Host) Config() *formconfig.FormConfig { return h.config }

// Values implements plugin.Host.
func (h *Host) Values() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return formconfig.CloneValues(h.values)
}

// Value implements plugin.Host.
func (h *Host) Value(path string) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return vexpr.Lookup(h.values, path)
}

// SetValues implements plugin.Host. It returns the written paths.
func (h *Host) SetValues(ctx context.Context, changes map[string]any) ([]string, error) {
	h.mu.Lock()
	paths := make([]string, 0, len(changes))
	for path, value := range changes {
		formconfig.SetValue(h.values, path, value)
		paths = append(paths, path)
	}
	all := formconfig.CloneValues(h.values)
	h.mu.Unlock()

	sort.Strings(paths)
	if h.Notify != nil {
		h.Notify(ctx, changes, all)
	}
	return paths, nil
}

// SetFieldOptions implements plugin.Host.
func (h *Host) SetFieldOptions(path string, options []formconfig.Option) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.options[path] = options
	return nil
}

// Options returns the options last applied to path.
func (h *Host) Options(path string) []formconfig.Option {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.options[path]
}

// Submit implements plugin.Host by counting calls.
func (h *Host) Submit(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.submits++
	return nil
}

// Reset implements plugin.Host by counting calls.
func (h *Host) Reset(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resets++
}

// Validate implements plugin.Host and reports no failures.
func (h *Host) Validate(context.Context) map[string][]string { return nil }

// Submits returns how many times Submit was called.
func (h *Host) Submits() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.submits
}
