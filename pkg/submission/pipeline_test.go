package submission_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/plugin"
	"github.com/goliatone/go-formengine/pkg/submission"
	"github.com/goliatone/go-formengine/pkg/testsupport"
)

const submitURL = "https://api.test/profile"

const profileConfig = `{
  "formId": "profile",
  "api": {"submit": "https://api.test/profile", "headers": {"X-Form": "profile"}},
  "fields": [
    {"name": "name", "label": "Name", "type": "input", "rules": [{"required": true}]},
    {"name": "email", "type": "input", "rules": [{"type": "email"}]},
    {"name": "owner", "type": "group", "fields": [
      {"name": "phone", "type": "input"}
    ]}
  ]
}`

type transformPlugin struct {
	name string
	fn   func(map[string]any) (map[string]any, error)
	seen []map[string]any
	errs []error
	resp any
}

func (p *transformPlugin) Name() string { return p.name }

func (p *transformPlugin) BeforeSubmit(_ context.Context, values map[string]any) (map[string]any, error) {
	p.seen = append(p.seen, values)
	return p.fn(values)
}

func (p *transformPlugin) AfterSubmit(_ context.Context, _ map[string]any, response any) error {
	p.resp = response
	return nil
}

func (p *transformPlugin) OnError(_ context.Context, err error) {
	p.errs = append(p.errs, err)
}

func TestSubmitFailingBeforeSubmitPluginIsIsolated(t *testing.T) {
	t.Parallel()

	cfg := testsupport.MustParseConfig(t, profileConfig)
	stub := testsupport.NewStubTransport().Reply(submitURL, testsupport.Reply{Body: map[string]any{"id": 7}})

	boom := errors.New("boom")
	failing := &transformPlugin{name: "failing", fn: func(map[string]any) (map[string]any, error) {
		return nil, boom
	}}
	stamping := &transformPlugin{name: "stamping", fn: func(values map[string]any) (map[string]any, error) {
		out := map[string]any{"stamped": true}
		for k, v := range values {
			out[k] = v
		}
		return out, nil
	}}

	plugins := plugin.NewPipeline()
	plugins.MustRegister(failing, stamping)

	var completed map[string]any
	var completedResp any
	res, err := submission.New(stub, nil).Submit(context.Background(), submission.Request{
		Config:  cfg,
		Values:  map[string]any{"name": "Ada"},
		Plugins: plugins,
		OnComplete: func(values map[string]any, response any) {
			completed = values
			completedResp = response
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if diff := cmp.Diff([]map[string]any{{"name": "Ada"}}, stamping.seen); diff != "" {
		t.Fatalf("stamping input mismatch (-want +got):\n%s", diff)
	}
	wantValues := map[string]any{"name": "Ada", "stamped": true}
	if diff := cmp.Diff(wantValues, stub.LastBody(t)); diff != "" {
		t.Fatalf("request body mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantValues, completed); diff != "" {
		t.Fatalf("completion values mismatch (-want +got):\n%s", diff)
	}
	wantResp := map[string]any{"id": float64(7)}
	if diff := cmp.Diff(wantResp, completedResp); diff != "" {
		t.Fatalf("completion response mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantResp, stamping.resp); diff != "" {
		t.Fatalf("after submit response mismatch (-want +got):\n%s", diff)
	}
	if len(res.HookErrors) != 1 || !errors.Is(res.HookErrors[0], boom) {
		t.Fatalf("expected one hook error wrapping boom, got %v", res.HookErrors)
	}
	if len(failing.errs) != 1 || !errors.Is(failing.errs[0], boom) {
		t.Fatalf("failing plugin should receive its own error, got %v", failing.errs)
	}
	if len(stamping.errs) != 0 {
		t.Fatalf("healthy plugin should not receive errors, got %v", stamping.errs)
	}
	if !res.Sent || res.Status != http.StatusOK {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSubmitRequestShape(t *testing.T) {
	t.Parallel()

	cfg := testsupport.MustParseConfig(t, profileConfig)
	cfg.API.Method = "put"
	stub := testsupport.NewStubTransport().Reply(submitURL, testsupport.Reply{Body: "accepted"})

	res, err := submission.New(stub, nil, submission.WithHeader("Authorization", "Bearer t")).
		Submit(context.Background(), submission.Request{Config: cfg, Values: map[string]any{"name": "Ada"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	reqs := stub.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(reqs))
	}
	if reqs[0].Method != http.MethodPut {
		t.Fatalf("method: want PUT, got %s", reqs[0].Method)
	}
	wantHeader := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer t",
		"X-Form":        "profile",
	}
	if diff := cmp.Diff(wantHeader, reqs[0].Header); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	if res.Response != "accepted" {
		t.Fatalf("text responses should be kept verbatim, got %#v", res.Response)
	}
}

func TestSubmitValidationFailureAborts(t *testing.T) {
	t.Parallel()

	cfg := testsupport.MustParseConfig(t, profileConfig)
	stub := testsupport.NewStubTransport()
	observer := &transformPlugin{name: "observer", fn: func(v map[string]any) (map[string]any, error) { return v, nil }}
	plugins := plugin.NewPipeline()
	plugins.MustRegister(observer)

	called := false
	_, err := submission.New(stub, nil).Submit(context.Background(), submission.Request{
		Config:     cfg,
		Values:     map[string]any{"email": "nope"},
		Plugins:    plugins,
		OnComplete: func(map[string]any, any) { called = true },
	})

	var verr *submission.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string][]string{
		"name":  {"'Name' is required"},
		"email": {"Please enter a valid email address"},
	}
	if diff := cmp.Diff(want, map[string][]string(verr.Fields)); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	if called || stub.Count() != 0 || len(observer.seen) != 0 {
		t.Fatalf("validation failure must stop the pipeline")
	}
	if len(observer.errs) != 1 {
		t.Fatalf("error handlers should see the validation error, got %v", observer.errs)
	}
}

func TestSubmitHiddenFieldsSkipValidation(t *testing.T) {
	t.Parallel()

	cfg := testsupport.MustParseConfig(t, profileConfig)
	cfg.API = nil

	var completed map[string]any
	res, err := submission.New(nil, nil).Submit(context.Background(), submission.Request{
		Config:     cfg,
		Values:     map[string]any{"email": "a@b.co"},
		Hidden:     func(path string) bool { return path == "name" },
		OnComplete: func(values map[string]any, response any) { completed = values },
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Sent {
		t.Fatalf("no endpoint configured, nothing should be sent")
	}
	if diff := cmp.Diff(map[string]any{"email": "a@b.co"}, completed); diff != "" {
		t.Fatalf("completion values mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitMapsServerErrors(t *testing.T) {
	t.Parallel()

	cfg := testsupport.MustParseConfig(t, profileConfig)
	stub := testsupport.NewStubTransport().Reply(submitURL, testsupport.Reply{
		Status: http.StatusUnprocessableEntity,
		Body: map[string]any{
			"message": "Could not save",
			"errors": map[string]any{
				"/body/name":       []string{"Name taken"},
				"owner.phone":      "Phone invalid",
				"request/unknown":  []string{"Unknown field"},
				"non_field_errors": []string{"Try later"},
			},
		},
	})

	completed := false
	_, err := submission.New(stub, nil).Submit(context.Background(), submission.Request{
		Config:     cfg,
		Values:     map[string]any{"name": "Ada"},
		OnComplete: func(map[string]any, any) { completed = true },
	})

	var serr *submission.SubmitError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SubmitError, got %v", err)
	}
	if serr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("status: want 422, got %d", serr.Status)
	}
	wantFields := map[string][]string{
		"name":        {"Name taken"},
		"owner.phone": {"Phone invalid"},
	}
	if diff := cmp.Diff(wantFields, serr.FieldErrors); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	wantForm := []string{"Could not save", "Try later", "Unknown field"}
	if diff := cmp.Diff(wantForm, serr.FormErrors); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	if completed {
		t.Fatalf("completion must not run on failure")
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	t.Parallel()

	cfg := testsupport.MustParseConfig(t, profileConfig)
	down := errors.New("connection refused")
	stub := testsupport.NewStubTransport().Reply(submitURL, testsupport.Reply{Err: down})

	_, err := submission.New(stub, nil).Submit(context.Background(), submission.Request{
		Config: cfg,
		Values: map[string]any{"name": "Ada"},
	})
	if !errors.Is(err, down) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}

	if _, err := submission.New(nil, nil).Submit(context.Background(), submission.Request{
		Config: cfg,
		Values: map[string]any{"name": "Ada"},
	}); err == nil {
		t.Fatalf("expected error without transport")
	}
}

func TestMapErrorPayloadPathForms(t *testing.T) {
	t.Parallel()

	cfg := &formconfig.FormConfig{
		FormID: "f",
		Fields: []formconfig.FieldConfig{
			{Name: "name", Type: formconfig.FieldInput},
			{Name: "owner", Type: formconfig.FieldGroup, Fields: []formconfig.FieldConfig{
				{Name: "email", Type: formconfig.FieldInput},
				{Name: "phone", Type: formconfig.FieldInput},
			}},
			{Name: "tags", Type: formconfig.FieldSelect},
		},
	}
	payload := map[string][]string{
		"/body/name":                 {"Name is required", " Name is required "},
		"body.owner.email":           {"Email invalid"},
		"$.body.tags[0]":             {"Tags must be unique"},
		"request.payload.owner":      {"Owner missing"},
		"body/owner/phone/~1number":  {"Phone malformed"},
		"request/body/unknown-field": {"Falls back"},
		"":                           {"Unscoped"},
	}

	mapped := submission.MapErrorPayload(cfg, payload)
	wantFields := map[string][]string{
		"name":        {"Name is required"},
		"owner.email": {"Email invalid"},
		"tags":        {"Tags must be unique"},
		"owner":       {"Owner missing"},
		"owner.phone": {"Phone malformed"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Unscoped", "Falls back"}, mapped.Form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFormErrors(t *testing.T) {
	t.Parallel()

	merged := submission.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	if diff := cmp.Diff([]string{"First", "Second", "third"}, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrorPayloadRecordList(t *testing.T) {
	t.Parallel()

	got := submission.DecodeErrorPayload([]byte(`{"errors":[{"field":"name","message":"bad"},{"path":"owner.email","message":"worse"},"plain"]}`))
	want := map[string][]string{
		"name":        {"bad"},
		"owner.email": {"worse"},
		"":            {"plain"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decoded payload mismatch (-want +got):\n%s", diff)
	}
	if got := submission.DecodeErrorPayload([]byte("not json")); got != nil {
		t.Fatalf("non JSON bodies decode to nil, got %v", got)
	}
}
