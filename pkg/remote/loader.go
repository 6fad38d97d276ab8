package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formengine/pkg/logger"
	"github.com/goliatone/go-formengine/pkg/transport"
	vexpr "github.com/goliatone/go-formengine/pkg/visibility/expr"
)

// Options configures the data source table of a Loader.
type Options struct {
	Sources []DataSource      `json:"dataSources" yaml:"dataSources" mapstructure:"dataSources"`
	Headers map[string]string `json:"headers"     yaml:"headers"     mapstructure:"headers"`
	Params  map[string]any    `json:"params"      yaml:"params"      mapstructure:"params"`
	// URLCacheTime caches direct URL loads. Zero disables it.
	URLCacheTime time.Duration `json:"urlCacheTime" yaml:"urlCacheTime" mapstructure:"urlCacheTime"`
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithCache stores results in cache instead of DefaultCache.
func WithCache(cache *Cache) LoaderOption {
	return func(l *Loader) {
		if cache != nil {
			l.cache = cache
		}
	}
}

// WithClock overrides the time source used for cache timestamps.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger used for load failures.
func WithLogger(lg logger.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger.OrNop(lg)
	}
}

// WithMetrics records cache and request counters.
func WithMetrics(m *Metrics) LoaderOption {
	return func(l *Loader) {
		l.metrics = m
	}
}

// Loader fetches option lists from declared data sources.
type Loader struct {
	transport transport.Transport
	sources   map[string]DataSource
	order     []string
	headers   map[string]string
	params    map[string]any
	urlTTL    time.Duration

	cache   *Cache
	now     func() time.Time
	logger  logger.Logger
	metrics *Metrics
}

// New constructs a Loader. Later sources with a duplicate name replace
// earlier ones.
func New(t transport.Transport, opts Options, options ...LoaderOption) *Loader {
	l := &Loader{
		transport: t,
		sources:   make(map[string]DataSource, len(opts.Sources)),
		headers:   opts.Headers,
		params:    opts.Params,
		urlTTL:    opts.URLCacheTime,
		cache:     DefaultCache(),
		now:       time.Now,
		logger:    logger.Nop(),
	}
	for _, src := range opts.Sources {
		if _, seen := l.sources[src.Name]; !seen {
			l.order = append(l.order, src.Name)
		}
		l.sources[src.Name] = src
	}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Source returns the declaration registered under name.
func (l *Loader) Source(name string) (DataSource, bool) {
	src, ok := l.sources[name]
	return src, ok
}

// Sources returns the declarations in declaration order.
func (l *Loader) Sources() []DataSource {
	out := make([]DataSource, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.sources[name])
	}
	return out
}

// Load returns the option list for the named source. When override is set it
// replaces the declaration and the result is cached under a key derived from
// its request shape.
func (l *Loader) Load(ctx context.Context, name string, override *DataSource) ([]Option, error) {
	src, ok := l.sources[name]
	key := name
	if override != nil {
		src = *override
		if src.Name == "" {
			src.Name = name
		}
	} else if !ok {
		return nil, &DataSourceNotFoundError{Name: name}
	}

	params := l.mergeParams(src.Params)
	if override != nil {
		key = CompositeKey(src.RequestMethod(), src.URL, params, src.Body)
	}

	if data, hit := l.cache.Fresh(key, src.TTL(), l.now()); hit {
		l.metrics.hit()
		return data, nil
	}
	l.metrics.miss()

	data, err := l.fetch(ctx, src, params)
	if err != nil {
		l.logger.Error("remote data load failed", "source", name, "url", src.URL, "error", err)
		return nil, err
	}
	l.cache.Store(key, data, l.now())
	return data, nil
}

// LoadURL fetches a JSON array of options directly from rawURL.
func (l *Loader) LoadURL(ctx context.Context, rawURL string) ([]Option, error) {
	key := CompositeKey(http.MethodGet, rawURL, nil, nil)
	if data, hit := l.cache.Fresh(key, l.urlTTL, l.now()); hit {
		l.metrics.hit()
		return data, nil
	}
	l.metrics.miss()

	src := DataSource{Name: rawURL, URL: rawURL}
	data, err := l.fetch(ctx, src, nil)
	if err != nil {
		l.logger.Error("remote options load failed", "url", rawURL, "error", err)
		return nil, err
	}
	if l.urlTTL > 0 {
		l.cache.Store(key, data, l.now())
	}
	return data, nil
}

// LoadAll loads every declared source concurrently. A failing source is
// logged and contributes an empty list.
func (l *Loader) LoadAll(ctx context.Context) map[string][]Option {
	results := make(map[string][]Option, len(l.order))
	var mu sync.Mutex
	var g errgroup.Group
	for _, name := range l.order {
		g.Go(func() error {
			data, err := l.Load(ctx, name, nil)
			if err != nil {
				l.logger.Warn("data source skipped", "source", name, "error", err)
				data = []Option{}
			}
			mu.Lock()
			results[name] = data
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ClearCache drops the named entries, or the whole cache when no name is
// given.
func (l *Loader) ClearCache(names ...string) {
	if len(names) == 0 {
		l.cache.Clear()
		return
	}
	l.cache.Delete(names...)
}

// AllData returns every cached list keyed by cache key.
func (l *Loader) AllData() map[string][]Option {
	return l.cache.Snapshot()
}

// CompositeKey identifies an ad hoc load by its request shape.
func CompositeKey(method, rawURL string, params map[string]any, body any) string {
	return fmt.Sprintf("%s:%s:%s:%s", method, rawURL, encodeKeyPart(params), encodeKeyPart(body))
}

func encodeKeyPart(v any) string {
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		v = nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// mergeParams layers source params over the global ones into a fresh map.
// A source key replaces the global value as a whole.
func (l *Loader) mergeParams(source map[string]any) map[string]any {
	merged := make(map[string]any, len(l.params)+len(source))
	maps.Copy(merged, l.params)
	maps.Copy(merged, source)
	return merged
}

func (l *Loader) mergeHeaders(source map[string]string) (map[string]string, error) {
	headers := map[string]string{"Content-Type": "application/json"}
	if len(l.headers) > 0 {
		if err := mergo.Merge(&headers, l.headers, mergo.WithOverride); err != nil {
			return nil, err
		}
	}
	if len(source) > 0 {
		if err := mergo.Merge(&headers, source, mergo.WithOverride); err != nil {
			return nil, err
		}
	}
	return headers, nil
}

func (l *Loader) fetch(ctx context.Context, src DataSource, params map[string]any) ([]Option, error) {
	if l.transport == nil {
		return nil, errors.New("remote: transport is not configured")
	}
	method := src.RequestMethod()
	target := src.URL
	if transport.IsReadMethod(method) {
		target = withQuery(target, params)
	}

	headers, err := l.mergeHeaders(src.Headers)
	if err != nil {
		return nil, fmt.Errorf("remote: merge headers for %q: %w", src.Name, err)
	}

	req := &transport.Request{Method: method, URL: target, Header: headers}
	if !transport.IsReadMethod(method) && src.Body != nil {
		body, err := json.Marshal(src.Body)
		if err != nil {
			return nil, fmt.Errorf("remote: encode body for %q: %w", src.Name, err)
		}
		req.Body = body
	}

	resp, err := l.transport.Do(ctx, req)
	if err != nil {
		l.metrics.request(src.Name, OutcomeError)
		return nil, fmt.Errorf("remote: load %q: %w", src.Name, err)
	}
	if !resp.OK() {
		l.metrics.request(src.Name, OutcomeStatus)
		return nil, &RemoteLoadError{Source: src.Name, URL: target, Status: resp.StatusCode}
	}
	l.metrics.request(src.Name, OutcomeSuccess)

	if !gjson.ValidBytes(resp.Body) {
		return nil, fmt.Errorf("remote: load %q: response is not valid JSON", src.Name)
	}
	return mapOptions(extract(gjson.ParseBytes(resp.Body), src.DataPath), src), nil
}

// withQuery appends params to rawURL in key order. Nil values are skipped.
func withQuery(rawURL string, params map[string]any) string {
	if len(params) == 0 {
		return rawURL
	}
	values := url.Values{}
	for key, value := range params {
		if value == nil {
			continue
		}
		values.Set(key, vexpr.ToString(value))
	}
	query := values.Encode()
	if query == "" {
		return rawURL
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}

// extract walks dataPath one segment at a time. A missing segment yields an
// empty result.
func extract(doc gjson.Result, dataPath string) gjson.Result {
	if dataPath == "" {
		return doc
	}
	current := doc
	for _, segment := range strings.Split(dataPath, ".") {
		if !current.IsObject() && !current.IsArray() {
			return gjson.Result{}
		}
		next := current.Get(gjson.Escape(segment))
		if !next.Exists() {
			return gjson.Result{}
		}
		current = next
	}
	return current
}

func mapOptions(list gjson.Result, src DataSource) []Option {
	if !list.IsArray() {
		return []Option{}
	}
	items := list.Array()
	out := make([]Option, 0, len(items))
	valueKey, labelKey := src.valueKey(), src.labelKey()
	for _, item := range items {
		raw := item.Value()
		record, ok := raw.(map[string]any)
		if !ok {
			out = append(out, Option{"value": raw, "label": raw})
			continue
		}
		opt := Option{"value": record[valueKey], "label": record[labelKey]}
		for k, v := range record {
			opt[k] = v
		}
		out = append(out, opt)
	}
	return out
}

// DependentSources returns the names of sources that declare a dependency on
// field, sorted.
func (l *Loader) DependentSources(field string) []string {
	var names []string
	for name, src := range l.sources {
		if src.DependsOn != nil && src.DependsOn.Field == field {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
