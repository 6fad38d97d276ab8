package formconfig

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateMinimalConfig(t *testing.T) {
	t.Parallel()

	doc := `{"formId":"f1","fields":[{"name":"age","type":"number"}],"buttons":[{"text":"Go","action":"submit"}]}`
	cfg, err := Parse([]byte(doc), FormatAuto)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if diff := cmp.Diff(ValidationResult{Valid: true}, Validate(cfg)); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	cfg.FormID = ""
	result := Validate(cfg)
	if result.Valid {
		t.Fatalf("expected invalid config without formId")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "formId") {
		t.Fatalf("expected a formId error, got %v", result.Errors)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	t.Parallel()

	cfg := &FormConfig{
		FormID: "f",
		Layout: &LayoutConfig{
			Type:  LayoutSteps,
			Steps: []StepConfig{{Title: "one", Fields: []int{0, 9}}},
		},
		Fields: []FieldConfig{
			{Name: "a", Type: FieldInput},
			{Type: FieldInput},
			{Name: "b"},
			{Name: "c", Type: "color-wheel"},
			{Name: "g", Type: FieldGroup},
			{Name: "h", Type: FieldGroup, Fields: []FieldConfig{{Type: FieldInput}, {Name: "x", Type: FieldInput}, {Name: "x", Type: FieldInput}}},
			{Name: "a", Type: FieldInput},
			{Name: "k", Type: FieldCustom},
		},
		Buttons: []ButtonConfig{
			{Text: "", Action: ActionSubmit},
			{Text: "Go"},
			{Text: "Fly", Action: "fly", Type: "huge"},
		},
	}

	want := []string{
		"Field at index 1 must have a name",
		"Field 'b' must have a type",
		"Field 'c' has unknown type 'color-wheel'",
		"Group field 'g' must have non-empty fields array",
		"Field at index 0 of group 'h' must have a name",
		"Field 'h.x' is declared more than once",
		"Field 'a' is declared more than once",
		"Custom field 'k' must declare a customType",
		"Layout step 0 references unknown field index 9",
		"Button at index 0 must have text",
		"Button at index 1 must have an action",
		"Button at index 2 has unknown action 'fly'",
		"Button at index 2 has unknown type 'huge'",
	}
	got := Validate(cfg)
	if got.Valid {
		t.Fatalf("expected invalid result")
	}
	if diff := cmp.Diff(want, got.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateNil(t *testing.T) {
	t.Parallel()

	if Validate(nil).Valid {
		t.Fatalf("nil config must be invalid")
	}
}

func TestValidationResultJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(ValidationResult{Valid: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"valid":true}` {
		t.Fatalf("unexpected encoding %s", data)
	}
}
