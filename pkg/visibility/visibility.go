// Package visibility resolves the visible and disabled state of fields and
// buttons from their declared conditions. Expression evaluation is delegated
// to an Evaluator; any evaluation failure falls back to the safe state
// (visible, enabled) so a bad rule never hides or locks a field.
package visibility

import (
	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/logger"
)

// Evaluator determines whether a rule holds for a field given the current
// form values and caller-supplied extras.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the live form values
// while Extras lets callers inject arbitrary context such as user roles or
// feature flags.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}

// State is the computed interactive state of a field or button.
type State struct {
	Visible  bool `json:"visible"`
	Disabled bool `json:"disabled"`
}

// DefaultState is visible and enabled.
func DefaultState() State { return State{Visible: true} }

// Option customises a Resolver.
type Option func(*Resolver)

// WithLogger records evaluation failures.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger.OrNop(l)
	}
}

// Resolver computes field and button states.
type Resolver struct {
	evaluator Evaluator
	logger    logger.Logger
}

// NewResolver constructs a Resolver around evaluator. A nil evaluator treats
// every expression as a failure, so expression conditions resolve to the
// fallback.
func NewResolver(evaluator Evaluator, options ...Option) *Resolver {
	r := &Resolver{evaluator: evaluator, logger: logger.Nop()}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Field returns the state of the field at path.
func (r *Resolver) Field(path string, field formconfig.FieldConfig, ctx Context) State {
	return State{
		Visible:  r.Condition(path, "visible", field.Visible, true, ctx),
		Disabled: r.Condition(path, "disabled", field.Disabled, false, ctx),
	}
}

// Button returns the state of a button identified by name.
func (r *Resolver) Button(name string, button formconfig.ButtonConfig, ctx Context) State {
	return State{
		Visible:  r.Condition(name, "visible", button.Visible, true, ctx),
		Disabled: r.Condition(name, "disabled", button.Disabled, false, ctx),
	}
}

// Condition resolves one flag. Unset conditions and failed evaluations
// yield fallback.
func (r *Resolver) Condition(path, kind string, cond formconfig.Condition, fallback bool, ctx Context) bool {
	if cond.IsZero() {
		return fallback
	}
	if v, ok := cond.Literal(); ok {
		return v
	}
	if r.evaluator == nil {
		r.logger.Warn("no evaluator configured", "field", path, "condition", kind)
		return fallback
	}

	ok, err := r.evaluator.Eval(path, cond.Expression(), ctx)
	if err != nil {
		r.logger.Warn("condition evaluation failed",
			"field", path,
			"condition", kind,
			"expression", cond.Expression(),
			"error", err,
		)
		return fallback
	}
	return ok
}
