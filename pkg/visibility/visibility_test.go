package visibility

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/formconfig"
)

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Debug(string, ...any)      {}
func (l *recordingLogger) Info(string, ...any)       {}
func (l *recordingLogger) Error(string, ...any)      {}
func (l *recordingLogger) Warn(msg string, _ ...any) { l.warnings = append(l.warnings, msg) }

func TestResolverLiteralsAndDefaults(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil)
	cases := []struct {
		name  string
		field formconfig.FieldConfig
		want  State
	}{
		{name: "unset", field: formconfig.FieldConfig{}, want: State{Visible: true}},
		{name: "hidden", field: formconfig.FieldConfig{Visible: formconfig.Bool(false)}, want: State{}},
		{name: "disabled", field: formconfig.FieldConfig{Disabled: formconfig.Bool(true)}, want: State{Visible: true, Disabled: true}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, r.Field("f", tc.field, Context{})); diff != "" {
			t.Fatalf("%s: state mismatch (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestResolverEvaluatesExpressions(t *testing.T) {
	t.Parallel()

	var seen []string
	eval := EvaluatorFunc(func(path, rule string, ctx Context) (bool, error) {
		seen = append(seen, path+":"+rule)
		return ctx.Values["on"] == true, nil
	})

	r := NewResolver(eval)
	field := formconfig.FieldConfig{
		Visible:  formconfig.Expr("$on"),
		Disabled: formconfig.Expr("$on"),
	}
	got := r.Field("a", field, Context{Values: map[string]any{"on": true}})
	if diff := cmp.Diff(State{Visible: true, Disabled: true}, got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a:$on", "a:$on"}, seen); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestResolverFallsBackOnFailure(t *testing.T) {
	t.Parallel()

	log := &recordingLogger{}
	failing := EvaluatorFunc(func(string, string, Context) (bool, error) {
		return false, errors.New("boom")
	})
	r := NewResolver(failing, WithLogger(log))

	field := formconfig.FieldConfig{Visible: formconfig.Expr("$x"), Disabled: formconfig.Expr("$x")}
	if diff := cmp.Diff(DefaultState(), r.Field("x", field, Context{})); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	if len(log.warnings) != 2 {
		t.Fatalf("expected two logged failures, got %v", log.warnings)
	}

	button := formconfig.ButtonConfig{Visible: formconfig.Expr("$x")}
	if got := NewResolver(nil).Button("submit", button, Context{}); !got.Visible || got.Disabled {
		t.Fatalf("expected fallback without evaluator, got %+v", got)
	}
}
