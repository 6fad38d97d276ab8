package formconfig

import (
	"slices"
	"strings"
)

// FieldType enumerates the widget kinds a field may declare.
type FieldType string

const (
	FieldInput       FieldType = "input"
	FieldTextarea    FieldType = "textarea"
	FieldPassword    FieldType = "password"
	FieldNumber      FieldType = "number"
	FieldSelect      FieldType = "select"
	FieldRadio       FieldType = "radio"
	FieldCheckbox    FieldType = "checkbox"
	FieldSwitch      FieldType = "switch"
	FieldSlider      FieldType = "slider"
	FieldDatePicker  FieldType = "date-picker"
	FieldTimePicker  FieldType = "time-picker"
	FieldRangePicker FieldType = "range-picker"
	FieldUpload      FieldType = "upload"
	FieldRate        FieldType = "rate"
	FieldCascader    FieldType = "cascader"
	FieldTransfer    FieldType = "transfer"
	FieldTreeSelect  FieldType = "tree-select"
	FieldGroup       FieldType = "group"
	FieldCustom      FieldType = "custom"
)

var knownFieldTypes = []FieldType{
	FieldInput, FieldTextarea, FieldPassword, FieldNumber, FieldSelect,
	FieldRadio, FieldCheckbox, FieldSwitch, FieldSlider, FieldDatePicker,
	FieldTimePicker, FieldRangePicker, FieldUpload, FieldRate, FieldCascader,
	FieldTransfer, FieldTreeSelect, FieldGroup, FieldCustom,
}

// FieldTypes returns every known field type.
func FieldTypes() []FieldType {
	return slices.Clone(knownFieldTypes)
}

// Known reports whether t is one of the enumerated field types.
func (t FieldType) Known() bool {
	return slices.Contains(knownFieldTypes, t)
}

// LayoutType selects how fields are arranged.
type LayoutType string

const (
	LayoutHorizontal LayoutType = "horizontal"
	LayoutVertical   LayoutType = "vertical"
	LayoutInline     LayoutType = "inline"
	LayoutTabs       LayoutType = "tabs"
	LayoutSteps      LayoutType = "steps"
	LayoutGrid       LayoutType = "grid"
)

// Known reports whether t is a supported layout. The empty layout is the
// default (horizontal).
func (t LayoutType) Known() bool {
	switch t {
	case "", LayoutHorizontal, LayoutVertical, LayoutInline, LayoutTabs, LayoutSteps, LayoutGrid:
		return true
	default:
		return false
	}
}

// ButtonType is the visual weight of a button.
type ButtonType string

const (
	ButtonPrimary ButtonType = "primary"
	ButtonDefault ButtonType = "default"
	ButtonDashed  ButtonType = "dashed"
	ButtonLink    ButtonType = "link"
	ButtonText    ButtonType = "text"
)

// Known reports whether t is a supported button type. Empty means default.
func (t ButtonType) Known() bool {
	switch t {
	case "", ButtonPrimary, ButtonDefault, ButtonDashed, ButtonLink, ButtonText:
		return true
	default:
		return false
	}
}

// ButtonAction is what a button does when clicked.
type ButtonAction string

const (
	ActionSubmit ButtonAction = "submit"
	ActionReset  ButtonAction = "reset"
	ActionCancel ButtonAction = "cancel"
	ActionCustom ButtonAction = "custom"
)

// Known reports whether a is a supported action.
func (a ButtonAction) Known() bool {
	switch a {
	case ActionSubmit, ActionReset, ActionCancel, ActionCustom:
		return true
	default:
		return false
	}
}

// FormConfig is the root of a form document.
type FormConfig struct {
	FormID      string         `json:"formId"                yaml:"formId"                mapstructure:"formId"`
	Name        string         `json:"name,omitempty"        yaml:"name,omitempty"        mapstructure:"name"`
	Version     string         `json:"version,omitempty"     yaml:"version,omitempty"     mapstructure:"version"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Layout      *LayoutConfig  `json:"layout,omitempty"      yaml:"layout,omitempty"      mapstructure:"layout"`
	API         *APIConfig     `json:"api,omitempty"         yaml:"api,omitempty"         mapstructure:"api"`
	Fields      []FieldConfig  `json:"fields"                yaml:"fields"                mapstructure:"fields"`
	Buttons     []ButtonConfig `json:"buttons,omitempty"     yaml:"buttons,omitempty"     mapstructure:"buttons"`
	Props       map[string]any `json:"props,omitempty"       yaml:"props,omitempty"       mapstructure:"props"`
}

// LayoutConfig describes the arrangement of fields. Tab, step and grid
// descriptors reference top-level fields by index.
type LayoutConfig struct {
	Type       LayoutType   `json:"type,omitempty"       yaml:"type,omitempty"       mapstructure:"type"`
	LabelCol   *ColConfig   `json:"labelCol,omitempty"   yaml:"labelCol,omitempty"   mapstructure:"labelCol"`
	WrapperCol *ColConfig   `json:"wrapperCol,omitempty" yaml:"wrapperCol,omitempty" mapstructure:"wrapperCol"`
	Gutter     int          `json:"gutter,omitempty"     yaml:"gutter,omitempty"     mapstructure:"gutter"`
	Spans      []int        `json:"spans,omitempty"      yaml:"spans,omitempty"      mapstructure:"spans"`
	Tabs       []TabConfig  `json:"tabs,omitempty"       yaml:"tabs,omitempty"       mapstructure:"tabs"`
	Steps      []StepConfig `json:"steps,omitempty"      yaml:"steps,omitempty"      mapstructure:"steps"`
}

// ColConfig is a grid column span.
type ColConfig struct {
	Span   int `json:"span"             yaml:"span"             mapstructure:"span"`
	Offset int `json:"offset,omitempty" yaml:"offset,omitempty" mapstructure:"offset"`
}

// TabConfig groups fields under a tab title.
type TabConfig struct {
	Title  string `json:"title"  yaml:"title"  mapstructure:"title"`
	Fields []int  `json:"fields" yaml:"fields" mapstructure:"fields"`
}

// StepConfig groups fields under a wizard step.
type StepConfig struct {
	Title       string `json:"title"                 yaml:"title"                 mapstructure:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Fields      []int  `json:"fields"                yaml:"fields"                mapstructure:"fields"`
}

// APIConfig declares the endpoints a form talks to.
type APIConfig struct {
	Fetch   string            `json:"fetch,omitempty"   yaml:"fetch,omitempty"   mapstructure:"fetch"`
	Submit  string            `json:"submit,omitempty"  yaml:"submit,omitempty"  mapstructure:"submit"`
	Method  string            `json:"method,omitempty"  yaml:"method,omitempty"  mapstructure:"method"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" mapstructure:"headers"`
}

// SubmitMethod returns the configured method, defaulting to POST.
func (a *APIConfig) SubmitMethod() string {
	if a == nil || strings.TrimSpace(a.Method) == "" {
		return "POST"
	}
	return strings.ToUpper(strings.TrimSpace(a.Method))
}

// FieldConfig declares a single field. Group fields nest their members; the
// runtime addresses a member as "<group>.<member>".
type FieldConfig struct {
	Name         string           `json:"name"                   yaml:"name"                   mapstructure:"name"`
	Label        string           `json:"label,omitempty"        yaml:"label,omitempty"        mapstructure:"label"`
	Type         FieldType        `json:"type"                   yaml:"type"                   mapstructure:"type"`
	DefaultValue any              `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty" mapstructure:"defaultValue"`
	Placeholder  string           `json:"placeholder,omitempty"  yaml:"placeholder,omitempty"  mapstructure:"placeholder"`
	Rules        []ValidationRule `json:"rules,omitempty"        yaml:"rules,omitempty"        mapstructure:"rules"`
	Props        map[string]any   `json:"props,omitempty"        yaml:"props,omitempty"        mapstructure:"props"`
	Options      Options          `json:"options,omitzero"       yaml:"options,omitempty"      mapstructure:"options"`
	Dependencies []string         `json:"dependencies,omitempty" yaml:"dependencies,omitempty" mapstructure:"dependencies"`
	Visible      Condition        `json:"visible,omitzero"       yaml:"visible,omitempty"      mapstructure:"visible"`
	Disabled     Condition        `json:"disabled,omitzero"      yaml:"disabled,omitempty"     mapstructure:"disabled"`
	Fields       []FieldConfig    `json:"fields,omitempty"       yaml:"fields,omitempty"       mapstructure:"fields"`
	CustomType   string           `json:"customType,omitempty"   yaml:"customType,omitempty"   mapstructure:"customType"`
	Width        any              `json:"width,omitempty"        yaml:"width,omitempty"        mapstructure:"width"`
	LabelWidth   any              `json:"labelWidth,omitempty"   yaml:"labelWidth,omitempty"   mapstructure:"labelWidth"`
	Help         string           `json:"help,omitempty"         yaml:"help,omitempty"         mapstructure:"help"`
	Extra        string           `json:"extra,omitempty"        yaml:"extra,omitempty"        mapstructure:"extra"`

	// Attrs holds document keys this struct does not model. They are kept
	// for plugins and are not re-encoded.
	Attrs map[string]any `json:"-" yaml:"-" mapstructure:",remain"`
}

// ButtonConfig declares a form action button.
type ButtonConfig struct {
	Text     string         `json:"text"               yaml:"text"               mapstructure:"text"`
	Type     ButtonType     `json:"type,omitempty"     yaml:"type,omitempty"     mapstructure:"type"`
	Action   ButtonAction   `json:"action"             yaml:"action"             mapstructure:"action"`
	Props    map[string]any `json:"props,omitempty"    yaml:"props,omitempty"    mapstructure:"props"`
	Visible  Condition      `json:"visible,omitzero"   yaml:"visible,omitempty"  mapstructure:"visible"`
	Disabled Condition      `json:"disabled,omitzero"  yaml:"disabled,omitempty" mapstructure:"disabled"`
	Handler  string         `json:"handler,omitempty"  yaml:"handler,omitempty"  mapstructure:"handler"`
	Icon     string         `json:"icon,omitempty"     yaml:"icon,omitempty"     mapstructure:"icon"`
}

// ValidationRule is either a named rule reference (Type naming a registered
// rule such as "email") or an inline constraint set.
type ValidationRule struct {
	Type      string   `json:"type,omitempty"      yaml:"type,omitempty"      mapstructure:"type"`
	Required  bool     `json:"required,omitempty"  yaml:"required,omitempty"  mapstructure:"required"`
	Message   string   `json:"message,omitempty"   yaml:"message,omitempty"   mapstructure:"message"`
	Min       *float64 `json:"min,omitempty"       yaml:"min,omitempty"       mapstructure:"min"`
	Max       *float64 `json:"max,omitempty"       yaml:"max,omitempty"       mapstructure:"max"`
	Len       *int     `json:"len,omitempty"       yaml:"len,omitempty"       mapstructure:"len"`
	Pattern   string   `json:"pattern,omitempty"   yaml:"pattern,omitempty"   mapstructure:"pattern"`
	Validator string   `json:"validator,omitempty" yaml:"validator,omitempty" mapstructure:"validator"`
}

// Path joins a parent path and a field name with a dot.
func Path(parent, name string) string {
	if parent == "" {
		return name
	}
	if name == "" {
		return parent
	}
	return parent + "." + name
}

// Walk visits fields depth-first, passing the qualified dotted path of each
// field. Returning false from fn skips the children of that field.
func Walk(fields []FieldConfig, fn func(path string, field *FieldConfig) bool) {
	walk("", fields, fn)
}

func walk(parent string, fields []FieldConfig, fn func(string, *FieldConfig) bool) {
	for i := range fields {
		field := &fields[i]
		path := Path(parent, field.Name)
		if !fn(path, field) {
			continue
		}
		if len(field.Fields) > 0 {
			walk(path, field.Fields, fn)
		}
	}
}

// Field finds a field by its qualified dotted path.
func (c *FormConfig) Field(path string) (*FieldConfig, bool) {
	if c == nil || path == "" {
		return nil, false
	}
	var found *FieldConfig
	Walk(c.Fields, func(p string, field *FieldConfig) bool {
		if found != nil {
			return false
		}
		if p == path {
			found = field
			return false
		}
		return strings.HasPrefix(path, p+".")
	})
	return found, found != nil
}

// FieldPaths lists every qualified field path in declaration order.
func (c *FormConfig) FieldPaths() []string {
	if c == nil {
		return nil
	}
	var out []string
	Walk(c.Fields, func(path string, _ *FieldConfig) bool {
		out = append(out, path)
		return true
	})
	return out
}
