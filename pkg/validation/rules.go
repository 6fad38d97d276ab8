package validation

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	vexpr "github.com/goliatone/go-formengine/pkg/visibility/expr"
)

// FieldErrors maps qualified field paths to their failure messages.
type FieldErrors map[string][]string

// Paths returns the failing paths in declaration order of cfg.
func (e FieldErrors) Paths(cfg *formconfig.FormConfig) []string {
	var out []string
	for _, path := range cfg.FieldPaths() {
		if len(e[path]) > 0 {
			out = append(out, path)
		}
	}
	return out
}

// Validate checks every field of cfg that is not hidden. Children of a
// hidden group are skipped too. A nil hidden func treats all fields as
// visible.
func (r *Registry) Validate(ctx context.Context, cfg *formconfig.FormConfig, values map[string]any, hidden func(path string) bool) FieldErrors {
	errs := FieldErrors{}
	if cfg == nil {
		return errs
	}
	formconfig.Walk(cfg.Fields, func(path string, field *formconfig.FieldConfig) bool {
		if hidden != nil && hidden(path) {
			return false
		}
		if msgs := r.ValidateField(ctx, path, *field, vexpr.Lookup(values, path), values); len(msgs) > 0 {
			errs[path] = msgs
		}
		return true
	})
	return errs
}

// ValidateField applies the rules of field to value and returns one message
// per failing rule.
func (r *Registry) ValidateField(ctx context.Context, path string, field formconfig.FieldConfig, value any, values map[string]any) []string {
	label := field.Label
	if label == "" {
		label = path
	}
	var msgs []string
	for _, rule := range field.Rules {
		if msg, failed := r.apply(ctx, label, field.Type, rule, value, values); failed {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func (r *Registry) apply(ctx context.Context, label string, fieldType formconfig.FieldType, rule formconfig.ValidationRule, value any, values map[string]any) (string, bool) {
	fail := func(fallback string, args ...any) (string, bool) {
		if rule.Message != "" {
			return rule.Message, true
		}
		return fmt.Sprintf(fallback, args...), true
	}

	empty := IsEmpty(value)
	if rule.Required && empty {
		return fail("'%s' is required", label)
	}

	if !empty {
		if rule.Type != "" {
			if named, ok := r.Rule(rule.Type); ok && !named.Check(value) {
				if named.Message != "" {
					return fail("%s", named.Message)
				}
				return fail("'%s' is not a valid %s", label, rule.Type)
			}
		}
		if msg, failed := r.bounds(label, fieldType, rule, value); failed {
			return fail("%s", msg)
		}
		if rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return fail("'%s' has an invalid pattern %s", label, rule.Pattern)
			}
			if !re.MatchString(vexpr.ToString(value)) {
				return fail("'%s' does not match pattern %s", label, rule.Pattern)
			}
		}
	}

	if rule.Validator != "" {
		fn, ok := r.Validator(rule.Validator)
		if !ok {
			return fmt.Sprintf("validator %q is not registered", rule.Validator), true
		}
		if err := fn(ctx, value, values); err != nil {
			return fail("%s", err.Error())
		}
	}
	return "", false
}

type measure int

const (
	measureNone measure = iota
	measureNumber
	measureText
	measureList
)

func measureOf(fieldType formconfig.FieldType, value any) measure {
	switch v := value.(type) {
	case string:
		if numericField(fieldType) {
			if _, ok := numeric(v); ok {
				return measureNumber
			}
		}
		return measureText
	case bool, nil:
		return measureNone
	}
	if _, ok := vexpr.ToNumber(value); ok {
		return measureNumber
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Slice, reflect.Array:
		return measureList
	}
	return measureNone
}

func numericField(t formconfig.FieldType) bool {
	return t == formconfig.FieldNumber || t == formconfig.FieldSlider || t == formconfig.FieldRate
}

// bounds checks min, max and len with validator tags.
func (r *Registry) bounds(label string, fieldType formconfig.FieldType, rule formconfig.ValidationRule, value any) (string, bool) {
	if rule.Min == nil && rule.Max == nil && rule.Len == nil {
		return "", false
	}
	switch measureOf(fieldType, value) {
	case measureNumber:
		n, _ := vexpr.ToNumber(value)
		if rule.Min != nil && r.validate.Var(n, "gte="+formatFloat(*rule.Min)) != nil {
			return fmt.Sprintf("'%s' cannot be less than %s", label, formatFloat(*rule.Min)), true
		}
		if rule.Max != nil && r.validate.Var(n, "lte="+formatFloat(*rule.Max)) != nil {
			return fmt.Sprintf("'%s' cannot be greater than %s", label, formatFloat(*rule.Max)), true
		}
		if rule.Len != nil && n != float64(*rule.Len) {
			return fmt.Sprintf("'%s' must equal %d", label, *rule.Len), true
		}
	case measureText:
		if msg, failed := r.length(value, rule, label, "characters"); failed {
			return msg, true
		}
	case measureList:
		if msg, failed := r.length(value, rule, label, "items"); failed {
			return msg, true
		}
	}
	return "", false
}

func (r *Registry) length(value any, rule formconfig.ValidationRule, label, unit string) (string, bool) {
	if rule.Min != nil {
		lo := int(math.Ceil(*rule.Min))
		if r.validate.Var(value, "min="+strconv.Itoa(lo)) != nil {
			return fmt.Sprintf("'%s' must be at least %d %s", label, lo, unit), true
		}
	}
	if rule.Max != nil {
		hi := int(math.Floor(*rule.Max))
		if r.validate.Var(value, "max="+strconv.Itoa(hi)) != nil {
			return fmt.Sprintf("'%s' cannot exceed %d %s", label, hi, unit), true
		}
	}
	if rule.Len != nil && r.validate.Var(value, "len="+strconv.Itoa(*rule.Len)) != nil {
		return fmt.Sprintf("'%s' must be exactly %d %s", label, *rule.Len, unit), true
	}
	return "", false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// IsEmpty reports whether value counts as missing for required checks: nil,
// the empty string, or an empty list or map.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
