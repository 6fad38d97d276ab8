package prompt

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/formconfig"
)

func TestOptionMapping(t *testing.T) {
	t.Parallel()

	options := []formconfig.Option{
		{"label": "One", "value": 1},
		{"label": "Two", "value": "2"},
		{"label": "Three", "value": 3},
	}

	if diff := cmp.Diff([]string{"One", "Two", "Three"}, optionLabels(options)); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
	if got := optionIndex(options, "1"); got != 0 {
		t.Fatalf("expected loose match at 0, got %d", got)
	}
	if got := optionIndex(options, nil); got != -1 {
		t.Fatalf("expected no default for nil, got %d", got)
	}
	if diff := cmp.Diff([]int{1, 2}, selectedIndices(options, []any{2, "3"})); diff != "" {
		t.Fatalf("selected mismatch (-want +got):\n%s", diff)
	}
	if got := display(nil); got != "" {
		t.Fatalf("expected empty display for nil, got %q", got)
	}
}
