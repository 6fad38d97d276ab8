// Package validation checks submitted field values against the rules declared
// in a form configuration.
//
// Rules either reference a named check held by a Registry (`type: email`) or
// carry inline constraints (required, min, max, len, pattern). Hosts add
// named checks with Register and arbitrary validators with
// RegisterValidator; the registry is constructed once and shared by
// reference.
package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	vexpr "github.com/goliatone/go-formengine/pkg/visibility/expr"
)

// Built-in rule names.
const (
	RuleEmail       = "email"
	RulePhone       = "phone"
	RuleURL         = "url"
	RuleIDCard      = "idcard"
	RuleNumber      = "number"
	RuleInteger     = "integer"
	RulePositive    = "positive"
	RuleNonNegative = "non-negative"
)

// Check reports whether a non-empty value satisfies a named rule.
type Check func(value any) bool

// NamedRule is a registered check with its default failure message.
type NamedRule struct {
	Name    string
	Message string
	Check   Check
}

// ValidatorFunc is a host validator referenced by `validator: <name>`. A nil
// return means the value is valid; the error text becomes the message.
type ValidatorFunc func(ctx context.Context, value any, values map[string]any) error

// Registry holds named rules and validators.
type Registry struct {
	mu         sync.RWMutex
	rules      map[string]NamedRule
	validators map[string]ValidatorFunc
	validate   *validator.Validate
}

// NewRegistry returns a registry with the built-in rules registered.
func NewRegistry() *Registry {
	r := &Registry{
		rules:      make(map[string]NamedRule),
		validators: make(map[string]ValidatorFunc),
		validate:   validator.New(),
	}
	r.registerBuiltins()
	return r
}

// Register adds or replaces a named rule.
func (r *Registry) Register(name, message string, check Check) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("validation: rule name is required")
	}
	if check == nil {
		return fmt.Errorf("validation: rule %q has no check", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[name] = NamedRule{Name: name, Message: message, Check: check}
	return nil
}

// Rule returns the named rule.
func (r *Registry) Rule(name string) (NamedRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[name]
	return rule, ok
}

// Names lists the registered rule names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterValidator adds or replaces a host validator.
func (r *Registry) RegisterValidator(name string, fn ValidatorFunc) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("validation: validator name is required")
	}
	if fn == nil {
		return fmt.Errorf("validation: validator %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[name] = fn
	return nil
}

// Validator returns the host validator registered under name.
func (r *Registry) Validator(name string) (ValidatorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.validators[name]
	return fn, ok
}

var (
	phonePattern  = regexp.MustCompile(`^1[3-9]\d{9}$`)
	idCardPattern = regexp.MustCompile(`(^\d{15}$)|(^\d{18}$)|(^\d{17}(\d|X|x)$)`)
)

func (r *Registry) registerBuiltins() {
	builtins := []NamedRule{
		{Name: RuleEmail, Message: "Please enter a valid email address", Check: r.tag("email")},
		{Name: RulePhone, Message: "Please enter a valid phone number", Check: matches(phonePattern)},
		{Name: RuleURL, Message: "Please enter a valid URL", Check: r.tag("url")},
		{Name: RuleIDCard, Message: "Please enter a valid ID card number", Check: matches(idCardPattern)},
		{Name: RuleNumber, Message: "Please enter a valid number", Check: func(v any) bool {
			_, ok := numeric(v)
			return ok
		}},
		{Name: RuleInteger, Message: "Please enter a valid integer", Check: func(v any) bool {
			n, ok := numeric(v)
			return ok && !math.IsInf(n, 0) && n == math.Trunc(n)
		}},
		{Name: RulePositive, Message: "Please enter a number greater than 0", Check: func(v any) bool {
			n, ok := numeric(v)
			return ok && n > 0
		}},
		{Name: RuleNonNegative, Message: "Please enter a number greater than or equal to 0", Check: func(v any) bool {
			n, ok := numeric(v)
			return ok && n >= 0
		}},
	}
	for _, rule := range builtins {
		r.rules[rule.Name] = rule
	}
}

// tag adapts a validator/v10 tag into a Check over the string form of value.
func (r *Registry) tag(tag string) Check {
	return func(value any) bool {
		return r.validate.Var(vexpr.ToString(value), tag) == nil
	}
}

func matches(re *regexp.Regexp) Check {
	return func(value any) bool {
		return re.MatchString(vexpr.ToString(value))
	}
}

// numeric coerces value to a number. Blank strings are not numbers here.
func numeric(value any) (float64, bool) {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return 0, false
	}
	return vexpr.ToNumber(value)
}
