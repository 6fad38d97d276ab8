package formconfig

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValuePaths(t *testing.T) {
	t.Parallel()

	values := map[string]any{"basic": "scalar"}
	SetValue(values, "name", "Ada")
	SetValue(values, "basic.category", "phones")
	SetValue(values, "owner.contact.email", "a@b.co")

	want := map[string]any{
		"name":  "Ada",
		"basic": map[string]any{"category": "phones"},
		"owner": map[string]any{"contact": map[string]any{"email": "a@b.co"}},
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	flat := FlattenValues(values)
	wantFlat := map[string]any{
		"name":                "Ada",
		"basic.category":      "phones",
		"owner.contact.email": "a@b.co",
	}
	if diff := cmp.Diff(wantFlat, flat); diff != "" {
		t.Fatalf("flattened mismatch (-want +got):\n%s", diff)
	}

	copied := CloneValues(values)
	DeleteValue(values, "owner.contact.email")
	DeleteValue(values, "missing.path")
	if _, ok := values["owner"].(map[string]any)["contact"].(map[string]any)["email"]; ok {
		t.Fatalf("expected email to be deleted")
	}
	if diff := cmp.Diff(want, copied); diff != "" {
		t.Fatalf("clone should be independent (-want +got):\n%s", diff)
	}
}
