// Package funcs turns formatter and parser sources found in form
// configurations into callables.
//
// Three shapes are accepted: arrow functions (`(a, b) => a + b`,
// `value => { return value * 2 }`), block functions
// (`function (value) { return value + 1; }`) and bare expressions that read a
// single implicit parameter named `value`. Bodies are expressions in the
// github.com/expr-lang/expr language; template literals such as
// "`¥ ${value}`" are rewritten to string concatenation first. A block body
// must be a single return statement.
//
// Synthesised functions run inside the expression VM and only see their own
// arguments plus the helpers below, but configuration text is still code:
// load it from trusted sources only. Hosts that need arbitrary behaviour
// register named functions in a Registry and reference them as `fn:<name>`.
//
// Helpers available to bodies: str(v), num(v), thousands(v[, sep]) and
// regexReplace(s, pattern, replacement).
package funcs

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/goliatone/go-formengine/pkg/logger"
)

// Func is a synthesised or registered callable.
type Func func(args ...any) (any, error)

// RegistryPrefix marks a source that names a registered function.
const RegistryPrefix = "fn:"

// Option customises a Synthesizer.
type Option func(*Synthesizer)

// WithRegistry resolves `fn:<name>` sources against registry.
func WithRegistry(registry *Registry) Option {
	return func(s *Synthesizer) {
		s.registry = registry
	}
}

// WithLogger records sources that fail to compile.
func WithLogger(l logger.Logger) Option {
	return func(s *Synthesizer) {
		s.logger = logger.OrNop(l)
	}
}

// Synthesizer compiles function sources and caches the results.
type Synthesizer struct {
	registry *Registry
	logger   logger.Logger

	mu    sync.RWMutex
	cache map[string]Func
}

// NewSynthesizer constructs a Synthesizer.
func NewSynthesizer(options ...Option) *Synthesizer {
	s := &Synthesizer{logger: logger.Nop(), cache: make(map[string]Func)}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Synthesize returns the callable described by source, or nil when source
// does not match an accepted shape or fails to compile.
func (s *Synthesizer) Synthesize(source string) Func {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil
	}

	if name, ok := strings.CutPrefix(trimmed, RegistryPrefix); ok {
		if s.registry == nil {
			s.logger.Warn("function registry not configured", "function", name)
			return nil
		}
		fn, err := s.registry.Get(strings.TrimSpace(name))
		if err != nil {
			s.logger.Warn("function not registered", "function", name, "error", err)
			return nil
		}
		return fn
	}

	s.mu.RLock()
	fn, ok := s.cache[trimmed]
	s.mu.RUnlock()
	if ok {
		return fn
	}

	fn, err := compile(trimmed)
	if err != nil {
		s.logger.Debug("function source rejected", "source", trimmed, "error", err)
		return nil
	}
	s.mu.Lock()
	s.cache[trimmed] = fn
	s.mu.Unlock()
	return fn
}

// Synthesize compiles source without caching or registry lookups.
func Synthesize(source string) Func {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" || strings.HasPrefix(trimmed, RegistryPrefix) {
		return nil
	}
	fn, err := compile(trimmed)
	if err != nil {
		return nil
	}
	return fn
}

var (
	arrowPattern    = regexp.MustCompile(`^(?s)\s*(?:\(([^)]*)\)|([A-Za-z_$][\w$]*))\s*=>\s*(.+)$`)
	functionPattern = regexp.MustCompile(`^(?s)\s*function\s*[A-Za-z_$]*[\w$]*\s*\(([^)]*)\)\s*\{(.*)\}\s*$`)
	returnPattern   = regexp.MustCompile(`^(?s)\s*return\s+(.+?)\s*;?\s*$`)
	identPattern    = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
)

type shape struct {
	params []string
	body   string
}

func parseShape(source string) (shape, error) {
	if strings.HasPrefix(source, "function") {
		m := functionPattern.FindStringSubmatch(source)
		if m == nil {
			return shape{}, fmt.Errorf("funcs: malformed function source")
		}
		params, err := splitParams(m[1])
		if err != nil {
			return shape{}, err
		}
		body, err := returnBody(m[2])
		if err != nil {
			return shape{}, err
		}
		return shape{params: params, body: body}, nil
	}

	if strings.Contains(source, "=>") {
		if m := arrowPattern.FindStringSubmatch(source); m != nil {
			raw := m[1]
			if m[2] != "" {
				raw = m[2]
			}
			params, err := splitParams(raw)
			if err != nil {
				return shape{}, err
			}
			body := strings.TrimSpace(m[3])
			if strings.HasPrefix(body, "{") {
				if !strings.HasSuffix(body, "}") {
					return shape{}, fmt.Errorf("funcs: unterminated block body")
				}
				body, err = returnBody(body[1 : len(body)-1])
				if err != nil {
					return shape{}, err
				}
			}
			return shape{params: params, body: body}, nil
		}
	}

	return shape{params: []string{"value"}, body: source}, nil
}

func splitParams(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	params := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if !identPattern.MatchString(name) {
			return nil, fmt.Errorf("funcs: invalid parameter %q", name)
		}
		params = append(params, name)
	}
	return params, nil
}

func returnBody(block string) (string, error) {
	m := returnPattern.FindStringSubmatch(block)
	if m == nil {
		return "", fmt.Errorf("funcs: block body must be a single return statement")
	}
	if strings.Contains(m[1], ";") {
		return "", fmt.Errorf("funcs: block body must be a single return statement")
	}
	return m[1], nil
}

func compile(source string) (Func, error) {
	sh, err := parseShape(source)
	if err != nil {
		return nil, err
	}
	body, err := translate(sh.body)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("funcs: empty body")
	}

	options := append([]expr.Option{expr.AllowUndefinedVariables()}, helperOptions()...)
	program, err := expr.Compile(body, options...)
	if err != nil {
		return nil, fmt.Errorf("funcs: compile: %w", err)
	}

	params := sh.params
	return func(args ...any) (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("funcs: run: %v", r)
			}
		}()
		return run(program, params, args)
	}, nil
}

func run(program *vm.Program, params []string, args []any) (any, error) {
	env := make(map[string]any, len(params))
	for i, name := range params {
		if i < len(args) {
			env[name] = args[i]
		} else {
			env[name] = nil
		}
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("funcs: run: %w", err)
	}
	return out, nil
}
