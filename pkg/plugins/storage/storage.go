// Package storage saves form drafts to a Store and restores them when the
// form initializes. Drafts are JSON documents; when an expiry is configured
// they carry a `_timestamp` (Unix milliseconds) and stale drafts are dropped
// on load.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/logger"
	"github.com/goliatone/go-formengine/pkg/plugin"
	vexpr "github.com/goliatone/go-formengine/pkg/visibility/expr"
)

// Name is the plugin name.
const Name = "storage"

// TimestampKey holds the save time of drafts written with an expiry.
const TimestampKey = "_timestamp"

// Option customises the plugin.
type Option func(*Plugin)

// WithAutoLoad toggles restoring the draft on initialize. Defaults to true.
func WithAutoLoad(enabled bool) Option {
	return func(p *Plugin) { p.autoLoad = enabled }
}

// WithAutoSave toggles saving on every value change. Defaults to true.
func WithAutoSave(enabled bool) Option {
	return func(p *Plugin) { p.autoSave = enabled }
}

// WithInclude keeps only the listed dotted paths in drafts.
func WithInclude(paths ...string) Option {
	return func(p *Plugin) { p.include = append(p.include, paths...) }
}

// WithExclude drops the listed dotted paths from drafts.
func WithExclude(paths ...string) Option {
	return func(p *Plugin) { p.exclude = append(p.exclude, paths...) }
}

// WithExpiry discards drafts older than d.
func WithExpiry(d time.Duration) Option {
	return func(p *Plugin) { p.expiry = d }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Plugin) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Plugin) { p.logger = logger.OrNop(l) }
}

// Plugin persists drafts of one form.
type Plugin struct {
	store    Store
	key      string
	autoLoad bool
	autoSave bool
	include  []string
	exclude  []string
	expiry   time.Duration
	now      func() time.Time
	logger   logger.Logger

	mu          sync.Mutex
	unsubscribe func()
}

var (
	_ plugin.Initializer    = (*Plugin)(nil)
	_ plugin.AfterSubmitter = (*Plugin)(nil)
	_ plugin.Disposer       = (*Plugin)(nil)
)

// New builds the plugin storing drafts under key.
func New(store Store, key string, opts ...Option) *Plugin {
	p := &Plugin{
		store:    store,
		key:      key,
		autoLoad: true,
		autoSave: true,
		now:      time.Now,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Plugin) Name() string { return Name }

// Initialize restores the draft and subscribes to value changes.
func (p *Plugin) Initialize(ctx context.Context, pc *plugin.Context) error {
	if p.store == nil || p.key == "" {
		return errors.New("storage: store and key are required")
	}
	if p.autoLoad {
		if err := p.Restore(ctx, pc); err != nil {
			p.logger.Error("draft restore failed", "form", pc.FormID(), "key", p.key, "error", err)
		}
	}
	if p.autoSave {
		unsubscribe := pc.OnValuesChange(func(ctx context.Context, _, all map[string]any) {
			if err := p.Save(ctx, all); err != nil {
				p.logger.Error("draft save failed", "form", pc.FormID(), "key", p.key, "error", err)
			}
		})
		p.mu.Lock()
		if p.unsubscribe != nil {
			p.unsubscribe()
		}
		p.unsubscribe = unsubscribe
		p.mu.Unlock()
	}
	return nil
}

// AfterSubmit saves the submitted values.
func (p *Plugin) AfterSubmit(ctx context.Context, values map[string]any, _ any) error {
	return p.Save(ctx, values)
}

// Dispose stops auto saving.
func (p *Plugin) Dispose(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	return nil
}

// Load returns the stored draft, or nil when there is none or it expired.
// Expired drafts are deleted.
func (p *Plugin) Load(ctx context.Context) (map[string]any, error) {
	data, err := p.store.Get(ctx, p.key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var draft map[string]any
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("storage: decode draft %q: %w", p.key, err)
	}

	if p.expiry > 0 {
		if saved, ok := draft[TimestampKey].(float64); ok {
			age := p.now().Sub(time.UnixMilli(int64(saved)))
			if age > p.expiry {
				p.logger.Debug("draft expired", "key", p.key, "age", age)
				return nil, p.store.Delete(ctx, p.key)
			}
		}
	}

	filtered := p.filter(draft)
	delete(filtered, TimestampKey)
	return filtered, nil
}

// Restore loads the draft and writes it into the form.
func (p *Plugin) Restore(ctx context.Context, pc *plugin.Context) error {
	draft, err := p.Load(ctx)
	if err != nil || len(draft) == 0 {
		return err
	}
	_, err = pc.SetValues(ctx, formconfig.FlattenValues(draft))
	return err
}

// Save writes the filtered values.
func (p *Plugin) Save(ctx context.Context, values map[string]any) error {
	draft := p.filter(values)
	delete(draft, TimestampKey)
	if p.expiry > 0 {
		draft[TimestampKey] = p.now().UnixMilli()
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("storage: encode draft %q: %w", p.key, err)
	}
	return p.store.Set(ctx, p.key, data, 0)
}

// Clear deletes the stored draft.
func (p *Plugin) Clear(ctx context.Context) error {
	return p.store.Delete(ctx, p.key)
}

// filter applies exclude and then include to a copy of values.
func (p *Plugin) filter(values map[string]any) map[string]any {
	out := formconfig.CloneValues(values)
	for _, path := range p.exclude {
		formconfig.DeleteValue(out, path)
	}
	if len(p.include) == 0 {
		return out
	}
	kept := make(map[string]any)
	for _, path := range p.include {
		if v := vexpr.Lookup(out, path); v != nil {
			formconfig.SetValue(kept, path, v)
		}
	}
	return kept
}
