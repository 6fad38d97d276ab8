// Package sanitize strips markup from submitted string values.
package sanitize

import (
	"context"
	"html"
	"slices"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/plugin"
)

// Name is the plugin name.
const Name = "sanitize"

// Option customises the plugin.
type Option func(*Plugin)

// WithPolicy replaces the strict policy. Output of a custom policy is kept
// HTML-escaped.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(p *Plugin) {
		if policy != nil {
			p.policy = policy
			p.unescape = false
		}
	}
}

// WithSkip leaves the listed dotted paths untouched.
func WithSkip(paths ...string) Option {
	return func(p *Plugin) { p.skip = append(p.skip, paths...) }
}

// Plugin sanitises values before submission.
type Plugin struct {
	policy   *bluemonday.Policy
	unescape bool
	skip     []string
}

var _ plugin.BeforeSubmitter = (*Plugin)(nil)

// New returns a plugin using bluemonday's strict policy, which removes every
// tag and yields plain text.
func New(opts ...Option) *Plugin {
	p := &Plugin{policy: bluemonday.StrictPolicy(), unescape: true}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Plugin) Name() string { return Name }

// BeforeSubmit returns a sanitised copy of values.
func (p *Plugin) BeforeSubmit(_ context.Context, values map[string]any) (map[string]any, error) {
	out, _ := p.clean("", values).(map[string]any)
	return out, nil
}

// String sanitises a single value.
func (p *Plugin) String(raw string) string {
	cleaned := p.policy.Sanitize(raw)
	if p.unescape {
		cleaned = html.UnescapeString(cleaned)
	}
	return cleaned
}

func (p *Plugin) clean(path string, value any) any {
	if path != "" && slices.Contains(p.skip, path) {
		return value
	}
	switch v := value.(type) {
	case string:
		return p.String(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = p.clean(formconfig.Path(path, key), item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = p.clean(path, item)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = p.String(item)
		}
		return out
	default:
		return value
	}
}
