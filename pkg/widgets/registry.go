package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/logger"
)

// Built-in component identifiers exposed by the registry.
const (
	ComponentTextInput     = "text-input"
	ComponentTextArea      = "text-area"
	ComponentPassword      = "password-input"
	ComponentNumber        = "number-input"
	ComponentSelect        = "select"
	ComponentMultiSelect   = "multi-select"
	ComponentRadioGroup    = "radio-group"
	ComponentCheckboxGroup = "checkbox-group"
	ComponentToggle        = "toggle"
	ComponentSlider        = "slider"
	ComponentDatePicker    = "date-picker"
	ComponentTimePicker    = "time-picker"
	ComponentRangePicker   = "range-picker"
	ComponentUpload        = "upload"
	ComponentRate          = "rate"
	ComponentCascader      = "cascader"
	ComponentTransfer      = "transfer"
	ComponentTreeSelect    = "tree-select"
	ComponentFieldset      = "fieldset"
	ComponentCodeEditor    = "code-editor"
)

// Fallback is returned by Component when nothing resolves.
const Fallback = ComponentTextInput

// Matcher decides whether a component should handle the supplied field.
type Matcher func(field formconfig.FieldConfig) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Option customises a Registry.
type Option func(*Registry)

// WithLogger records fallbacks to the default component.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		r.logger = logger.OrNop(l)
	}
}

// Registry selects components for fields based on explicit hints, custom
// type registrations or matchers. Higher priority wins; ties fall back to
// registration order.
type Registry struct {
	mu     sync.RWMutex
	rules  []rule
	types  map[string]string
	logger logger.Logger
}

// NewRegistry constructs a registry with a matcher for every built-in field
// type registered.
func NewRegistry(opts ...Option) *Registry {
	reg := &Registry{types: make(map[string]string), logger: logger.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(reg)
		}
	}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher with the provided component name and priority.
// The latest registration wins among equal names during resolution.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// RegisterType binds a field type, or the customType of a custom field, to a
// component. Bindings take precedence over matchers.
func (r *Registry) RegisterType(fieldType, component string) {
	if r == nil {
		return
	}
	fieldType, component = strings.TrimSpace(fieldType), strings.TrimSpace(component)
	if fieldType == "" || component == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[fieldType] = component
}

// Types lists the bound type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the component for a field. An explicit `props.component`
// hint is honoured before type bindings and matchers.
func (r *Registry) Resolve(field formconfig.FieldConfig) (string, bool) {
	if explicit := explicitComponent(field); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	key := string(field.Type)
	if field.Type == formconfig.FieldCustom {
		key = field.CustomType
	}
	if bound, ok := r.types[key]; ok {
		r.mu.RUnlock()
		return bound, true
	}
	if field.Type == formconfig.FieldCustom || len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// Component resolves field, falling back to a text input.
func (r *Registry) Component(field formconfig.FieldConfig) string {
	if name, ok := r.Resolve(field); ok {
		return name
	}
	if r != nil {
		key := string(field.Type)
		if field.Type == formconfig.FieldCustom {
			key = field.CustomType
		}
		r.logger.Warn("component not found, falling back", "field", field.Name, "type", key, "fallback", Fallback)
	}
	return Fallback
}

func explicitComponent(field formconfig.FieldConfig) string {
	if field.Props == nil {
		return ""
	}
	if name, ok := field.Props["component"].(string); ok {
		return strings.TrimSpace(name)
	}
	return ""
}

func isType(types ...formconfig.FieldType) Matcher {
	return func(field formconfig.FieldConfig) bool {
		for _, t := range types {
			if field.Type == t {
				return true
			}
		}
		return false
	}
}

func (r *Registry) registerBuiltins() {
	byType := []struct {
		name string
		t    formconfig.FieldType
	}{
		{ComponentTextInput, formconfig.FieldInput},
		{ComponentTextArea, formconfig.FieldTextarea},
		{ComponentPassword, formconfig.FieldPassword},
		{ComponentNumber, formconfig.FieldNumber},
		{ComponentSelect, formconfig.FieldSelect},
		{ComponentRadioGroup, formconfig.FieldRadio},
		{ComponentCheckboxGroup, formconfig.FieldCheckbox},
		{ComponentToggle, formconfig.FieldSwitch},
		{ComponentSlider, formconfig.FieldSlider},
		{ComponentDatePicker, formconfig.FieldDatePicker},
		{ComponentTimePicker, formconfig.FieldTimePicker},
		{ComponentRangePicker, formconfig.FieldRangePicker},
		{ComponentUpload, formconfig.FieldUpload},
		{ComponentRate, formconfig.FieldRate},
		{ComponentCascader, formconfig.FieldCascader},
		{ComponentTransfer, formconfig.FieldTransfer},
		{ComponentTreeSelect, formconfig.FieldTreeSelect},
		{ComponentFieldset, formconfig.FieldGroup},
	}
	for _, entry := range byType {
		r.Register(entry.name, 10, isType(entry.t))
	}

	r.Register(ComponentMultiSelect, 80, func(field formconfig.FieldConfig) bool {
		if field.Type != formconfig.FieldSelect {
			return false
		}
		mode, _ := field.Props["mode"].(string)
		return mode == "multiple" || mode == "tags"
	})

	r.Register(ComponentCodeEditor, 60, func(field formconfig.FieldConfig) bool {
		if field.Type != formconfig.FieldTextarea {
			return false
		}
		lang, _ := field.Props["language"].(string)
		lang = strings.TrimSpace(strings.ToLower(lang))
		return lang == "json" || lang == "yaml" || lang == "toml"
	})
}
