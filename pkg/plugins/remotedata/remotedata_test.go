package remotedata_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/plugin"
	"github.com/goliatone/go-formengine/pkg/plugins/remotedata"
	"github.com/goliatone/go-formengine/pkg/remote"
	"github.com/goliatone/go-formengine/pkg/testsupport"
)

const productConfig = `
formId: product
fields:
  - name: basic
    type: group
    fields:
      - name: category
        type: select
        options: remote:categories
      - name: brand
        type: select
        options: remote:brands
  - name: color
    type: select
    options:
      - {label: Red, value: red}
`

const (
	categoriesURL = "https://api.test/categories"
	brandsURL     = "https://api.test/brands"
)

func newLoader(stub *testsupport.StubTransport) *remote.Loader {
	return remote.New(stub, remote.Options{Sources: []remote.DataSource{
		{Name: "categories", URL: categoriesURL, CacheTime: 60_000},
		{
			Name:       "brands",
			URL:        brandsURL,
			LabelField: "name",
			ValueField: "id",
			DependsOn:  &remote.Dependency{Field: "basic.category", Param: "categoryId"},
		},
	}}, remote.WithCache(remote.NewCache()))
}

func newStub() *testsupport.StubTransport {
	return testsupport.NewStubTransport().
		Reply(categoriesURL, testsupport.Reply{Body: []any{"phones", "laptops"}}).
		Reply(brandsURL, testsupport.Reply{Body: []map[string]any{{"id": "acme", "name": "Acme"}}}).
		Reply(brandsURL+"?categoryId=phones", testsupport.Reply{Body: []map[string]any{{"id": "fone", "name": "Fone"}}})
}

func TestBeforeRenderRewritesRemoteOptions(t *testing.T) {
	t.Parallel()

	cfg := testsupport.MustParseConfig(t, productConfig)
	p := remotedata.New(newLoader(newStub()))

	out, err := p.BeforeRender(context.Background(), cfg)
	if err != nil {
		t.Fatalf("before render: %v", err)
	}

	want := map[string]string{"basic.category": "categories", "basic.brand": "brands"}
	if diff := cmp.Diff(want, p.Bindings()); diff != "" {
		t.Fatalf("bindings mismatch (-want +got):\n%s", diff)
	}
	brand, _ := out.Field("basic.brand")
	if brand.Options.Source != "" || brand.Options.Items == nil || len(brand.Options.Items) != 0 {
		t.Fatalf("expected empty inline list, got %+v", brand.Options)
	}
	color, _ := out.Field("color")
	if len(color.Options.Items) != 1 {
		t.Fatalf("inline options must be untouched, got %+v", color.Options)
	}
	original, _ := cfg.Field("basic.brand")
	if original.Options.Source != "remote:brands" {
		t.Fatalf("input config must not be mutated, got %+v", original.Options)
	}
}

func TestLifecycleLoadsAndCascades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testsupport.MustParseConfig(t, productConfig)
	stub := newStub()
	loader := newLoader(stub)
	p := remotedata.New(loader)

	pipeline := plugin.NewPipeline()
	pipeline.MustRegister(p)

	rendered, errs := pipeline.BeforeRender(ctx, cfg)
	if len(errs) != 0 {
		t.Fatalf("before render errors: %v", errs)
	}
	host := testsupport.NewHost(rendered, nil)
	pc := plugin.NewContext(rendered.FormID, host)
	host.Notify = pc.NotifyValuesChange

	if errs, err := pipeline.Initialize(ctx, pc); err != nil || len(errs) != 0 {
		t.Fatalf("initialize: %v %v", err, errs)
	}
	shared, ok := pc.Get(remotedata.SharedKey)
	if !ok || shared.(*remote.Loader) != loader {
		t.Fatalf("loader should be published in the shared context")
	}
	if got := stub.Count(); got != 2 {
		t.Fatalf("auto load should fetch both sources, got %d requests", got)
	}

	if errs := pipeline.AfterRender(ctx, pc); len(errs) != 0 {
		t.Fatalf("after render errors: %v", errs)
	}
	wantCategories := []formconfig.Option{
		{"value": "phones", "label": "phones"},
		{"value": "laptops", "label": "laptops"},
	}
	if diff := cmp.Diff(wantCategories, host.Options("basic.category")); diff != "" {
		t.Fatalf("category options mismatch (-want +got):\n%s", diff)
	}
	wantBrands := []formconfig.Option{{"value": "acme", "label": "Acme", "id": "acme", "name": "Acme"}}
	if diff := cmp.Diff(wantBrands, host.Options("basic.brand")); diff != "" {
		t.Fatalf("brand options mismatch (-want +got):\n%s", diff)
	}
	// categories is cached, brands has no TTL and refetches.
	if got := stub.Count(); got != 3 {
		t.Fatalf("expected 3 requests after render, got %d", got)
	}

	if _, err := pc.SetValues(ctx, map[string]any{"basic.category": "phones"}); err != nil {
		t.Fatalf("set values: %v", err)
	}
	wantFiltered := []formconfig.Option{{"value": "fone", "label": "Fone", "id": "fone", "name": "Fone"}}
	if diff := cmp.Diff(wantFiltered, host.Options("basic.brand")); diff != "" {
		t.Fatalf("cascaded brand options mismatch (-want +got):\n%s", diff)
	}
	reqs := stub.Requests()
	if last := reqs[len(reqs)-1].URL; last != brandsURL+"?categoryId=phones" {
		t.Fatalf("unexpected cascade URL %s", last)
	}

	before := stub.Count()
	if _, err := pc.SetValues(ctx, map[string]any{"basic.category": "phones"}); err != nil {
		t.Fatalf("set values: %v", err)
	}
	if _, err := pc.SetValues(ctx, map[string]any{"basic.category": ""}); err != nil {
		t.Fatalf("set values: %v", err)
	}
	if stub.Count() != before {
		t.Fatalf("unchanged or empty values must not reload")
	}

	if _, err := pipeline.Dispose(ctx); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if _, err := pc.SetValues(ctx, map[string]any{"basic.category": "laptops"}); err != nil {
		t.Fatalf("set values: %v", err)
	}
	if stub.Count() != before {
		t.Fatalf("disposed plugin must not react to changes")
	}
}

func TestCascadeMatchesNestedChanges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stub := newStub()
	p := remotedata.New(newLoader(stub))
	pipeline := plugin.NewPipeline()
	pipeline.MustRegister(p)

	rendered, _ := pipeline.BeforeRender(ctx, testsupport.MustParseConfig(t, productConfig))
	host := testsupport.NewHost(rendered, nil)
	pc := plugin.NewContext(rendered.FormID, host)
	host.Notify = pc.NotifyValuesChange
	if _, err := pipeline.Initialize(ctx, pc); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	pipeline.AfterRender(ctx, pc)

	changes := map[string]any{"basic": map[string]any{"category": "phones"}}
	if _, err := pc.SetValues(ctx, changes); err != nil {
		t.Fatalf("set values: %v", err)
	}
	want := []formconfig.Option{{"value": "fone", "label": "Fone", "id": "fone", "name": "Fone"}}
	if diff := cmp.Diff(want, host.Options("basic.brand")); diff != "" {
		t.Fatalf("cascaded brand options mismatch (-want +got):\n%s", diff)
	}
}

func TestAfterRenderReportsFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testsupport.MustParseConfig(t, productConfig)
	stub := testsupport.NewStubTransport().Reply(categoriesURL, testsupport.Reply{Body: []any{"phones"}})
	p := remotedata.New(newLoader(stub), remotedata.WithAutoLoad(false))

	rendered, _ := p.BeforeRender(ctx, cfg)
	host := testsupport.NewHost(rendered, nil)
	pc := plugin.NewContext(rendered.FormID, host)
	if err := p.Initialize(ctx, pc); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if stub.Count() != 0 {
		t.Fatalf("auto load disabled, got %d requests", stub.Count())
	}

	if err := p.AfterRender(ctx, pc); err == nil {
		t.Fatalf("expected the brands failure to be reported")
	}
	if len(host.Options("basic.category")) != 1 {
		t.Fatalf("healthy fields still receive options")
	}
}
