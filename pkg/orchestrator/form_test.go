package orchestrator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/funcs"
	"github.com/goliatone/go-formengine/pkg/orchestrator"
	"github.com/goliatone/go-formengine/pkg/plugin"
	"github.com/goliatone/go-formengine/pkg/plugins/remotedata"
	"github.com/goliatone/go-formengine/pkg/plugins/sanitize"
	"github.com/goliatone/go-formengine/pkg/remote"
	"github.com/goliatone/go-formengine/pkg/submission"
	"github.com/goliatone/go-formengine/pkg/testsupport"
)

const signupConfig = `
formId: signup
api:
  submit: https://api.test/signup
fields:
  - name: kind
    type: radio
    defaultValue: basic
    options:
      - {label: Basic, value: basic}
      - {label: Pro, value: pro}
  - name: company
    type: input
    visible: "formValues.kind == 'pro'"
    rules:
      - required: true
  - name: name
    type: input
    rules:
      - required: true
  - name: price
    type: number
    props:
      formatter: "v => `${v} EUR`"
buttons:
  - {text: Send, action: submit}
  - {text: Clear, action: reset}
  - {text: Back, action: cancel}
  - {text: Preview, action: custom, handler: preview}
`

const signupURL = "https://api.test/signup"

func mount(t *testing.T, doc string, opts ...orchestrator.Option) *orchestrator.Form {
	t.Helper()
	form, err := orchestrator.New(testsupport.MustParseConfig(t, doc), opts...)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	if err := form.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	return form
}

func TestSetValuesRecomputesDependents(t *testing.T) {
	t.Parallel()

	form := mount(t, `
formId: f1
fields:
  - name: a
    type: input
    visible: "formValues.b == 1"
  - name: b
    type: number
    defaultValue: 0
  - name: c
    type: input
`)
	if form.State() != plugin.StateActive {
		t.Fatalf("expected active state, got %s", form.State())
	}
	if st, _ := form.FieldState("a"); st.Visible {
		t.Fatalf("expected a hidden while b is 0")
	}

	got, err := form.SetValues(context.Background(), map[string]any{"b": 1})
	if err != nil {
		t.Fatalf("set values: %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Fatalf("recalculated mismatch (-want +got):\n%s", diff)
	}
	if st, _ := form.FieldState("a"); !st.Visible {
		t.Fatalf("expected a visible once b is 1")
	}
	if st, _ := form.FieldState("c"); st.Component == "" {
		t.Fatalf("expected a component for c")
	}
}

func TestSubmitSkipsHiddenFieldsAndPostsValues(t *testing.T) {
	t.Parallel()

	stub := testsupport.NewStubTransport().
		Reply(signupURL, testsupport.Reply{Body: map[string]any{"id": 7}})
	var response any
	form := mount(t, signupConfig,
		orchestrator.WithTransport(stub),
		orchestrator.WithInitialValues(map[string]any{"name": "<b>Ada</b>"}),
		orchestrator.WithPlugins(sanitize.New()),
		orchestrator.WithOnSubmit(func(_ map[string]any, resp any) { response = resp }),
	)

	if err := form.Click(context.Background(), 0); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"kind": "basic", "name": "Ada"}, stub.LastBody(t)); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"id": float64(7)}, response); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}
	if form.State() != plugin.StateActive {
		t.Fatalf("expected active after submit, got %s", form.State())
	}
}

func TestSubmitValidatesVisibleFields(t *testing.T) {
	t.Parallel()

	stub := testsupport.NewStubTransport()
	form := mount(t, signupConfig, orchestrator.WithTransport(stub))
	if _, err := form.SetValues(context.Background(), map[string]any{"kind": "pro", "name": "Ada"}); err != nil {
		t.Fatalf("set values: %v", err)
	}

	err := form.Submit(context.Background())
	var verr *submission.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if diff := cmp.Diff([]string{"company"}, keys(verr.Fields)); diff != "" {
		t.Fatalf("failed fields mismatch (-want +got):\n%s", diff)
	}
	if stub.Count() != 0 {
		t.Fatalf("expected no request, got %d", stub.Count())
	}
}

func TestButtonStatesWhileSubmitting(t *testing.T) {
	t.Parallel()

	var during []orchestrator.ButtonState
	var form *orchestrator.Form
	form = mount(t, `
formId: quick
fields:
  - {name: note, type: input}
buttons:
  - {text: Save, action: submit}
  - {text: Clear, action: reset}
`, orchestrator.WithOnSubmit(func(map[string]any, any) { during = form.ButtonStates() }))

	if err := form.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(during) != 2 || !during[0].Disabled || during[1].Disabled {
		t.Fatalf("unexpected button states during submit: %+v", during)
	}
	if after := form.ButtonStates(); after[0].Disabled {
		t.Fatalf("submit button still disabled after submit")
	}
}

func TestClickDispatchesActions(t *testing.T) {
	t.Parallel()

	cancelled := false
	previewed := 0
	form := mount(t, signupConfig,
		orchestrator.WithOnCancel(func() { cancelled = true }),
		orchestrator.WithHandlers(map[string]orchestrator.Handler{
			"preview": func(_ context.Context, f *orchestrator.Form) error {
				previewed++
				if f.Value("kind") != "pro" {
					return errors.New("preview needs pro")
				}
				return nil
			},
		}),
	)
	ctx := context.Background()

	if _, err := form.SetValues(ctx, map[string]any{"kind": "pro"}); err != nil {
		t.Fatalf("set values: %v", err)
	}
	if err := form.Click(ctx, 3); err != nil {
		t.Fatalf("custom: %v", err)
	}
	if err := form.Click(ctx, 1); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := form.Value("kind"); got != "basic" {
		t.Fatalf("expected reset kind, got %v", got)
	}
	if err := form.Click(ctx, 3); err == nil {
		t.Fatalf("expected handler error after reset")
	}
	if err := form.Click(ctx, 2); err != nil || !cancelled {
		t.Fatalf("cancel: err=%v cancelled=%v", err, cancelled)
	}
	if previewed != 2 {
		t.Fatalf("expected 2 preview calls, got %d", previewed)
	}
	if err := form.Click(ctx, 9); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestClickUnknownHandler(t *testing.T) {
	t.Parallel()

	form := mount(t, signupConfig)
	if err := form.Click(context.Background(), 3); err == nil {
		t.Fatalf("expected unknown handler error")
	}
}

func TestFormatterSynthesized(t *testing.T) {
	t.Parallel()

	registry := funcs.NewRegistry()
	form := mount(t, signupConfig, orchestrator.WithFuncs(registry))
	st, ok := form.FieldState("price")
	if !ok || st.Formatter == nil {
		t.Fatalf("expected a formatter for price")
	}
	got, err := st.Formatter(12)
	if err != nil {
		t.Fatalf("formatter: %v", err)
	}
	if got != "12 EUR" {
		t.Fatalf("unexpected formatted value %v", got)
	}
	if st.Parser != nil {
		t.Fatalf("expected no parser")
	}
}

func TestURLOptionsLoadedOnMount(t *testing.T) {
	t.Parallel()

	stub := testsupport.NewStubTransport().
		Reply("https://api.test/countries", testsupport.Reply{Body: []map[string]any{
			{"label": "Spain", "value": "es"},
		}})
	form := mount(t, `
formId: address
fields:
  - name: country
    type: select
    options: https://api.test/countries
`, orchestrator.WithTransport(stub))

	st, _ := form.FieldState("country")
	if len(st.Options) != 1 || st.Options[0].Value() != "es" || st.Options[0].Label() != "Spain" {
		t.Fatalf("unexpected options %+v", st.Options)
	}
}

func TestRemoteDataPluginIntegration(t *testing.T) {
	t.Parallel()

	stub := testsupport.NewStubTransport().
		Reply("https://api.test/categories", testsupport.Reply{Body: []any{"phones"}}).
		Reply("https://api.test/brands", testsupport.Reply{Body: []any{"acme"}}).
		Reply("https://api.test/brands?categoryId=phones", testsupport.Reply{Body: []any{"fone"}})
	loader := remote.New(stub, remote.Options{Sources: []remote.DataSource{
		{Name: "categories", URL: "https://api.test/categories"},
		{
			Name:      "brands",
			URL:       "https://api.test/brands",
			DependsOn: &remote.Dependency{Field: "category", Param: "categoryId"},
		},
	}}, remote.WithCache(remote.NewCache()))

	form := mount(t, `
formId: product
fields:
  - {name: category, type: select, options: "remote:categories"}
  - {name: brand, type: select, options: "remote:brands"}
`, orchestrator.WithPlugins(remotedata.New(loader, remotedata.WithAutoLoad(false))))

	if errs := form.HookErrors(); len(errs) > 0 {
		t.Fatalf("unexpected hook errors: %v", errs.Err())
	}
	if st, _ := form.FieldState("brand"); len(st.Options) != 1 || st.Options[0].Value() != "acme" {
		t.Fatalf("unexpected brand options %+v", st.Options)
	}
	if _, ok := form.Context().Get(remotedata.SharedKey); !ok {
		t.Fatalf("expected the loader in the shared context")
	}

	if _, err := form.SetValues(context.Background(), map[string]any{"category": "phones"}); err != nil {
		t.Fatalf("set values: %v", err)
	}
	if st, _ := form.FieldState("brand"); len(st.Options) != 1 || st.Options[0].Value() != "fone" {
		t.Fatalf("expected cascaded brand options, got %+v", st.Options)
	}

	if err := form.Dispose(context.Background()); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if _, err := form.SetValues(context.Background(), map[string]any{"category": "laptops"}); !errors.Is(err, plugin.ErrInvalidState) {
		t.Fatalf("expected invalid state after dispose, got %v", err)
	}
	if err := form.SetFieldOptions("brand", nil); err != nil {
		t.Fatalf("options after dispose must be ignored: %v", err)
	}
}

func TestLayoutSections(t *testing.T) {
	t.Parallel()

	form := mount(t, `
formId: wizard
layout:
  type: steps
  steps:
    - {title: Who, fields: [0]}
    - {title: What, description: Details, fields: [1, 2]}
fields:
  - {name: name, type: input}
  - {name: topic, type: input}
  - {name: body, type: textarea}
`)
	want := orchestrator.LayoutView{
		Type: formconfig.LayoutSteps,
		Sections: []orchestrator.Section{
			{Title: "Who", Fields: []string{"name"}},
			{Title: "What", Description: "Details", Fields: []string{"topic", "body"}},
		},
	}
	if diff := cmp.Diff(want, form.Layout()); diff != "" {
		t.Fatalf("layout mismatch (-want +got):\n%s", diff)
	}
}

func TestMountRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := &formconfig.FormConfig{FormID: "empty"}
	form, err := orchestrator.New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var verr *formconfig.ValidationError
	if err := form.Mount(context.Background()); !errors.As(err, &verr) {
		t.Fatalf("expected config validation error, got %v", err)
	}
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
