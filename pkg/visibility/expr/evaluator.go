// Package expr implements the small expression language used by form
// configurations for visibility, disabled state and dependency hints.
//
// Supported forms, tried in this order on the trimmed text:
//   - conjunction `a && b` and disjunction `a || b`
//   - comparisons `==`, `!=`, `>=`, `<=`, `>`, `<` with two operands
//   - `$path.to.value` context lookups
//   - single-quoted strings, numbers, `true`, `false`, `null`, `undefined`
//
// Anything else evaluates to its own text. Operator splitting is textual, so
// a quoted literal containing `&&` or a comparison operator is misparsed.
package expr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-formengine/pkg/visibility"
)

// valuesKey is the scope key that also exposes the form values.
const valuesKey = "formValues"

// Evaluator caches parsed expressions and evaluates them against a context.
// The zero value is not usable; construct with New.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]Node
}

var _ visibility.Evaluator = (*Evaluator)(nil)

// New constructs an Evaluator with an empty parse cache.
func New() *Evaluator {
	return &Evaluator{cache: make(map[string]Node)}
}

// Compile returns the parsed form of expression, reusing earlier results.
func (e *Evaluator) Compile(expression string) Node {
	e.mu.RLock()
	node, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return node
	}

	node = Parse(expression)
	e.mu.Lock()
	e.cache[expression] = node
	e.mu.Unlock()
	return node
}

// Evaluate computes expression against ctx.
func (e *Evaluator) Evaluate(expression string, ctx map[string]any) any {
	return e.Compile(expression).Eval(ctx)
}

// Eval implements visibility.Evaluator. The rule is evaluated against a scope
// where form values are reachable both at the top level and under
// `formValues`, and extras under `extras`. The result is its truthiness.
func (e *Evaluator) Eval(fieldPath, rule string, ctx visibility.Context) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("visibility/expr: evaluate %q for %s: %v", rule, fieldPath, r)
		}
	}()
	if strings.TrimSpace(rule) == "" {
		return false, nil
	}
	return Truthy(e.Evaluate(rule, Scope(ctx))), nil
}

// Evaluate parses and evaluates expression without caching.
func Evaluate(expression string, ctx map[string]any) any {
	return Parse(expression).Eval(ctx)
}

// Scope flattens a visibility context into the map expressions read from.
func Scope(ctx visibility.Context) map[string]any {
	scope := make(map[string]any, len(ctx.Values)+2)
	for k, v := range ctx.Values {
		scope[k] = v
	}
	values := ctx.Values
	if values == nil {
		values = map[string]any{}
	}
	scope[valuesKey] = values
	if ctx.Extras != nil {
		scope["extras"] = ctx.Extras
	}
	return scope
}
