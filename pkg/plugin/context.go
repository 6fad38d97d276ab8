package plugin

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-formengine/pkg/formconfig"
)

// ErrNoHost is returned by Context methods that need a form instance when
// none is attached.
var ErrNoHost = errors.New("plugin: no form instance attached")

// Host is the live form instance a Context bridges to.
type Host interface {
	Config() *formconfig.FormConfig
	Values() map[string]any
	Value(path string) any
	SetValues(ctx context.Context, changes map[string]any) ([]string, error)
	SetFieldOptions(path string, options []formconfig.Option) error
	Submit(ctx context.Context) error
	Reset(ctx context.Context)
	Validate(ctx context.Context) map[string][]string
}

// ValueListener is notified after values change. changed maps the dotted
// paths that were written to their new values; all is a snapshot of every
// value.
type ValueListener func(ctx context.Context, changed, all map[string]any)

// Context is shared by reference across the plugins of one form instance.
type Context struct {
	formID     string
	instanceID string
	host       Host

	mu        sync.RWMutex
	shared    map[string]any
	listeners map[int]ValueListener
	nextID    int
}

// NewContext builds a context for formID bound to host.
func NewContext(formID string, host Host) *Context {
	return &Context{
		formID:     formID,
		instanceID: uuid.NewString(),
		host:       host,
		shared:     make(map[string]any),
		listeners:  make(map[int]ValueListener),
	}
}

// FormID identifies the form configuration.
func (c *Context) FormID() string { return c.formID }

// InstanceID identifies this form instance.
func (c *Context) InstanceID() string { return c.instanceID }

// Config returns the live configuration, or nil without a host.
func (c *Context) Config() *formconfig.FormConfig {
	if c.host == nil {
		return nil
	}
	return c.host.Config()
}

// Values returns a snapshot of the current values.
func (c *Context) Values() map[string]any {
	if c.host == nil {
		return map[string]any{}
	}
	return c.host.Values()
}

// Value reads the value at a dotted path.
func (c *Context) Value(path string) any {
	if c.host == nil {
		return nil
	}
	return c.host.Value(path)
}

// SetValues writes dotted-path values and returns the recalculated paths.
func (c *Context) SetValues(ctx context.Context, changes map[string]any) ([]string, error) {
	if c.host == nil {
		return nil, ErrNoHost
	}
	return c.host.SetValues(ctx, changes)
}

// SetFieldOptions replaces the option list of a field.
func (c *Context) SetFieldOptions(path string, options []formconfig.Option) error {
	if c.host == nil {
		return ErrNoHost
	}
	return c.host.SetFieldOptions(path, options)
}

// Submit triggers a form submission.
func (c *Context) Submit(ctx context.Context) error {
	if c.host == nil {
		return ErrNoHost
	}
	return c.host.Submit(ctx)
}

// Reset restores the initial values.
func (c *Context) Reset(ctx context.Context) {
	if c.host != nil {
		c.host.Reset(ctx)
	}
}

// Validate runs field validation and returns the failing paths.
func (c *Context) Validate(ctx context.Context) map[string][]string {
	if c.host == nil {
		return nil
	}
	return c.host.Validate(ctx)
}

// Set stores a value in the per-instance shared area.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shared[key] = value
}

// Get reads a value from the shared area.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.shared[key]
	return v, ok
}

// Delete removes a key from the shared area.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.shared, key)
}

// Keys lists the shared keys in sorted order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.shared))
	for k := range c.shared {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OnValuesChange subscribes fn and returns a function that removes it.
func (c *Context) OnValuesChange(fn ValueListener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// NotifyValuesChange calls every listener in subscription order.
func (c *Context) NotifyValuesChange(ctx context.Context, changed, all map[string]any) {
	c.mu.RLock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]ValueListener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, changed, all)
	}
}
