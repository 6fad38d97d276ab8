package formconfig

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Condition is a field or button flag given either as a literal boolean or
// as an expression string. The zero value is unset, meaning the caller's
// default applies.
type Condition struct {
	set        bool
	value      bool
	expression string
}

// Bool returns a literal condition.
func Bool(v bool) Condition { return Condition{set: true, value: v} }

// Expr returns an expression condition.
func Expr(expression string) Condition { return Condition{set: true, expression: expression} }

// IsZero reports whether the condition is unset.
func (c Condition) IsZero() bool { return !c.set }

// IsExpression reports whether the condition holds an expression.
func (c Condition) IsExpression() bool { return c.set && c.expression != "" }

// Expression returns the expression text, or "" for literal and unset
// conditions.
func (c Condition) Expression() string { return c.expression }

// Literal returns the boolean value and whether the condition is a literal.
func (c Condition) Literal() (bool, bool) {
	if !c.set || c.expression != "" {
		return false, false
	}
	return c.value, true
}

func (c Condition) String() string {
	switch {
	case !c.set:
		return "<unset>"
	case c.expression != "":
		return c.expression
	default:
		return fmt.Sprint(c.value)
	}
}

func (c Condition) encoded() any {
	switch {
	case !c.set:
		return nil
	case c.expression != "":
		return c.expression
	default:
		return c.value
	}
}

// MarshalJSON encodes the condition as a bool, a string or null.
func (c Condition) MarshalJSON() ([]byte, error) { return json.Marshal(c.encoded()) }

// MarshalYAML encodes the condition as a bool, a string or null.
func (c Condition) MarshalYAML() (any, error) { return c.encoded(), nil }

// UnmarshalJSON accepts a bool, a string or null.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := conditionFrom(raw)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

func conditionFrom(raw any) (Condition, error) {
	switch v := raw.(type) {
	case nil:
		return Condition{}, nil
	case bool:
		return Bool(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		switch trimmed {
		case "":
			return Condition{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return Expr(v), nil
	case Condition:
		return v, nil
	default:
		return Condition{}, fmt.Errorf("formconfig: condition must be a bool or an expression string, got %T", raw)
	}
}

// Option is a single choice record. Besides label and value it may carry
// disabled, children and any other keys a widget understands.
type Option map[string]any

// NewOption builds an option with the given value and label.
func NewOption(value, label any) Option {
	return Option{"value": value, "label": label}
}

// Value returns the option's value.
func (o Option) Value() any { return o["value"] }

// Label returns the option's label rendered as text.
func (o Option) Label() string {
	switch v := o["label"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Disabled reports whether the option is marked disabled.
func (o Option) Disabled() bool {
	v, _ := o["disabled"].(bool)
	return v
}

// RemotePrefix marks an option source resolved by the remote data plugin.
const RemotePrefix = "remote:"

// Options is either an inline option list or a source string (an http(s)
// URL or "remote:<name>").
type Options struct {
	Items  []Option
	Source string
}

// InlineOptions wraps an option list.
func InlineOptions(items ...Option) Options {
	if items == nil {
		items = []Option{}
	}
	return Options{Items: items}
}

// SourceOptions wraps an indirection string.
func SourceOptions(source string) Options { return Options{Source: source} }

// IsZero reports whether no options were declared.
func (o Options) IsZero() bool { return o.Items == nil && o.Source == "" }

// Remote returns the data source name for "remote:<name>" sources.
func (o Options) Remote() (string, bool) {
	if !strings.HasPrefix(o.Source, RemotePrefix) {
		return "", false
	}
	name := strings.TrimSpace(strings.TrimPrefix(o.Source, RemotePrefix))
	return name, name != ""
}

// URL returns the source when it is an http(s) URL.
func (o Options) URL() (string, bool) {
	lower := strings.ToLower(o.Source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return o.Source, true
	}
	return "", false
}

func (o Options) encoded() any {
	if o.Source != "" {
		return o.Source
	}
	if o.Items != nil {
		return o.Items
	}
	return nil
}

// MarshalJSON encodes the options as a list or a source string.
func (o Options) MarshalJSON() ([]byte, error) { return json.Marshal(o.encoded()) }

// MarshalYAML encodes the options as a list or a source string.
func (o Options) MarshalYAML() (any, error) { return o.encoded(), nil }

// UnmarshalJSON accepts a list of option records or a source string.
func (o *Options) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := optionsFrom(raw)
	if err != nil {
		return err
	}
	*o = decoded
	return nil
}

func optionsFrom(raw any) (Options, error) {
	switch v := raw.(type) {
	case nil:
		return Options{}, nil
	case string:
		return SourceOptions(v), nil
	case Options:
		return v, nil
	case []Option:
		return InlineOptions(v...), nil
	case []any:
		items := make([]Option, 0, len(v))
		for i, item := range v {
			switch typed := item.(type) {
			case map[string]any:
				items = append(items, Option(typed))
			case Option:
				items = append(items, typed)
			case nil:
				return Options{}, fmt.Errorf("formconfig: option at index %d is null", i)
			default:
				items = append(items, NewOption(typed, typed))
			}
		}
		return Options{Items: items}, nil
	default:
		return Options{}, fmt.Errorf("formconfig: options must be a list or a source string, got %T", raw)
	}
}
