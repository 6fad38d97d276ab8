package formconfig

import (
	"fmt"
	"strings"
)

// ValidationResult is the outcome of a structural check.
type ValidationResult struct {
	Valid  bool     `json:"valid"            yaml:"valid"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Validate checks the structural invariants of cfg and reports every
// violation it finds, in document order.
func Validate(cfg *FormConfig) ValidationResult {
	v := &validator{}
	if cfg == nil {
		v.add("config is required")
		return v.result()
	}

	if strings.TrimSpace(cfg.FormID) == "" {
		v.add("formId is required")
	}
	if len(cfg.Fields) == 0 {
		v.add("fields must be a non-empty array")
	} else {
		v.fields("", cfg.Fields)
	}
	v.layout(cfg.Layout, len(cfg.Fields))
	v.buttons(cfg.Buttons)
	return v.result()
}

type validator struct {
	errors []string
}

func (v *validator) add(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) result() ValidationResult {
	return ValidationResult{Valid: len(v.errors) == 0, Errors: v.errors}
}

func (v *validator) fields(parent string, fields []FieldConfig) {
	seen := make(map[string]struct{}, len(fields))
	for i, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			if parent == "" {
				v.add("Field at index %d must have a name", i)
			} else {
				v.add("Field at index %d of group '%s' must have a name", i, parent)
			}
			continue
		}

		path := Path(parent, field.Name)
		if _, dup := seen[field.Name]; dup {
			v.add("Field '%s' is declared more than once", path)
		}
		seen[field.Name] = struct{}{}

		if strings.TrimSpace(string(field.Type)) == "" {
			v.add("Field '%s' must have a type", path)
			continue
		}
		if !field.Type.Known() {
			v.add("Field '%s' has unknown type '%s'", path, field.Type)
		}

		switch field.Type {
		case FieldGroup:
			if len(field.Fields) == 0 {
				v.add("Group field '%s' must have non-empty fields array", path)
			} else {
				v.fields(path, field.Fields)
			}
		case FieldCustom:
			if strings.TrimSpace(field.CustomType) == "" {
				v.add("Custom field '%s' must declare a customType", path)
			}
		}
	}
}

func (v *validator) layout(layout *LayoutConfig, fieldCount int) {
	if layout == nil {
		return
	}
	if !layout.Type.Known() {
		v.add("Layout type '%s' is not supported", layout.Type)
	}
	for i, tab := range layout.Tabs {
		for _, idx := range tab.Fields {
			if idx < 0 || idx >= fieldCount {
				v.add("Layout tab %d references unknown field index %d", i, idx)
			}
		}
	}
	for i, step := range layout.Steps {
		for _, idx := range step.Fields {
			if idx < 0 || idx >= fieldCount {
				v.add("Layout step %d references unknown field index %d", i, idx)
			}
		}
	}
}

func (v *validator) buttons(buttons []ButtonConfig) {
	for i, button := range buttons {
		if strings.TrimSpace(button.Text) == "" {
			v.add("Button at index %d must have text", i)
		}
		if button.Action == "" {
			v.add("Button at index %d must have an action", i)
		} else if !button.Action.Known() {
			v.add("Button at index %d has unknown action '%s'", i, button.Action)
		}
		if !button.Type.Known() {
			v.add("Button at index %d has unknown type '%s'", i, button.Type)
		}
	}
}
