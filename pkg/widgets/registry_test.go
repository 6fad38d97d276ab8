package widgets

import (
	"testing"

	"github.com/goliatone/go-formengine/pkg/formconfig"
)

func TestResolve_ExplicitComponentWins(t *testing.T) {
	reg := NewRegistry()
	field := formconfig.FieldConfig{
		Type:  formconfig.FieldSwitch,
		Props: map[string]any{"component": "custom-toggle"},
	}

	if got, ok := reg.Resolve(field); !ok || got != "custom-toggle" {
		t.Fatalf("expected explicit component to win, got %q (ok=%v)", got, ok)
	}
}

func TestResolve_Builtins(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		name   string
		field  formconfig.FieldConfig
		expect string
	}{
		{
			name:   "switch toggle",
			field:  formconfig.FieldConfig{Type: formconfig.FieldSwitch},
			expect: ComponentToggle,
		},
		{
			name:   "single select",
			field:  formconfig.FieldConfig{Type: formconfig.FieldSelect},
			expect: ComponentSelect,
		},
		{
			name: "multi select mode",
			field: formconfig.FieldConfig{
				Type:  formconfig.FieldSelect,
				Props: map[string]any{"mode": "multiple"},
			},
			expect: ComponentMultiSelect,
		},
		{
			name: "code editor json language",
			field: formconfig.FieldConfig{
				Type:  formconfig.FieldTextarea,
				Props: map[string]any{"language": "JSON"},
			},
			expect: ComponentCodeEditor,
		},
		{
			name:   "plain textarea",
			field:  formconfig.FieldConfig{Type: formconfig.FieldTextarea},
			expect: ComponentTextArea,
		},
		{
			name:   "group fieldset",
			field:  formconfig.FieldConfig{Type: formconfig.FieldGroup},
			expect: ComponentFieldset,
		},
		{
			name:   "range picker",
			field:  formconfig.FieldConfig{Type: formconfig.FieldRangePicker},
			expect: ComponentRangePicker,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := reg.Resolve(tc.field)
			if !ok {
				t.Fatalf("expected resolution for %s", tc.name)
			}
			if got != tc.expect {
				t.Fatalf("resolve %s: want %q, got %q", tc.name, tc.expect, got)
			}
		})
	}
}

func TestResolve_PriorityOverride(t *testing.T) {
	reg := NewRegistry()
	reg.Register("fancy-toggle", 999, func(field formconfig.FieldConfig) bool {
		return field.Type == formconfig.FieldSwitch
	})

	got, ok := reg.Resolve(formconfig.FieldConfig{Type: formconfig.FieldSwitch})
	if !ok || got != "fancy-toggle" {
		t.Fatalf("priority matcher should win, got %q (ok=%v)", got, ok)
	}
}

func TestResolve_CustomTypes(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterType("color", "color-picker")
	reg.RegisterType(string(formconfig.FieldInput), "masked-input")

	custom := formconfig.FieldConfig{Name: "tint", Type: formconfig.FieldCustom, CustomType: "color"}
	if got := reg.Component(custom); got != "color-picker" {
		t.Fatalf("custom type: want color-picker, got %q", got)
	}
	if got := reg.Component(formconfig.FieldConfig{Type: formconfig.FieldInput}); got != "masked-input" {
		t.Fatalf("type binding should override matchers, got %q", got)
	}

	unknown := formconfig.FieldConfig{Name: "x", Type: formconfig.FieldCustom, CustomType: "signature"}
	if _, ok := reg.Resolve(unknown); ok {
		t.Fatalf("unregistered custom types must not resolve")
	}
	if got := reg.Component(unknown); got != Fallback {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := reg.Types(); len(got) != 2 || got[0] != "color" || got[1] != "input" {
		t.Fatalf("unexpected bound types %v", got)
	}
}
