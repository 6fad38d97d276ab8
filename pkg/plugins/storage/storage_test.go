package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/plugin"
	"github.com/goliatone/go-formengine/pkg/plugins/storage"
	"github.com/goliatone/go-formengine/pkg/testsupport"
)

const draftConfig = `{"formId": "draft", "fields": [
  {"name": "name", "type": "input"},
  {"name": "password", "type": "password"},
  {"name": "owner", "type": "group", "fields": [{"name": "email", "type": "input"}]}
]}`

func newRedisStore(t *testing.T) (*storage.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return storage.NewRedisStore(client, "formengine:"), mr
}

func TestStores(t *testing.T) {
	t.Parallel()

	redisStore, mr := newRedisStore(t)
	clock := testsupport.NewClock(time.Unix(1_700_000_000, 0))
	stores := map[string]storage.Store{
		"memory": storage.NewMemoryStore(clock.Now),
		"redis":  redisStore,
	}

	ctx := context.Background()
	for name, store := range stores {
		if _, err := store.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", name, err)
		}
		if err := store.Set(ctx, "k", []byte(`{"a":1}`), time.Minute); err != nil {
			t.Fatalf("%s: set: %v", name, err)
		}
		got, err := store.Get(ctx, "k")
		if err != nil || string(got) != `{"a":1}` {
			t.Fatalf("%s: get = %q, %v", name, got, err)
		}
	}

	if !mr.Exists("formengine:k") {
		t.Fatalf("redis key should carry the prefix, got %v", mr.Keys())
	}
	mr.FastForward(2 * time.Minute)
	clock.Advance(2 * time.Minute)
	for name, store := range stores {
		if _, err := store.Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("%s: expected expiry, got %v", name, err)
		}
		if err := store.Delete(ctx, "k"); err != nil {
			t.Fatalf("%s: delete: %v", name, err)
		}
	}
}

func TestPluginSavesAndRestoresDrafts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testsupport.MustParseConfig(t, draftConfig)
	store, _ := newRedisStore(t)

	first := storage.New(store, "draft:1", storage.WithExclude("password"))
	host := testsupport.NewHost(cfg, nil)
	pc := plugin.NewContext(cfg.FormID, host)
	host.Notify = pc.NotifyValuesChange
	if err := first.Initialize(ctx, pc); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := pc.SetValues(ctx, map[string]any{"name": "Ada", "password": "secret", "owner.email": "a@b.co"}); err != nil {
		t.Fatalf("set values: %v", err)
	}

	draft, err := first.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]any{"name": "Ada", "owner": map[string]any{"email": "a@b.co"}}
	if diff := cmp.Diff(want, draft); diff != "" {
		t.Fatalf("saved draft mismatch (-want +got):\n%s", diff)
	}

	second := storage.New(store, "draft:1")
	restored := testsupport.NewHost(cfg, nil)
	if err := second.Initialize(ctx, plugin.NewContext(cfg.FormID, restored)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if diff := cmp.Diff(want, restored.Values()); diff != "" {
		t.Fatalf("restored values mismatch (-want +got):\n%s", diff)
	}
}

func TestPluginIncludeAndAfterSubmit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore(nil)
	p := storage.New(store, "draft:2", storage.WithInclude("owner.email"), storage.WithAutoSave(false))

	if err := p.AfterSubmit(ctx, map[string]any{"name": "Ada", "owner": map[string]any{"email": "a@b.co"}}, nil); err != nil {
		t.Fatalf("after submit: %v", err)
	}
	raw, err := store.Get(ctx, "draft:2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"owner": map[string]any{"email": "a@b.co"}}, got); diff != "" {
		t.Fatalf("included draft mismatch (-want +got):\n%s", diff)
	}

	if err := p.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if draft, err := p.Load(ctx); err != nil || draft != nil {
		t.Fatalf("expected no draft after clear, got %v %v", draft, err)
	}
}

func TestPluginDropsExpiredDrafts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testsupport.NewClock(time.UnixMilli(1_000_000))
	store := storage.NewMemoryStore(clock.Now)
	p := storage.New(store, "draft:3", storage.WithExpiry(time.Hour), storage.WithClock(clock.Now))

	if err := p.Save(ctx, map[string]any{"name": "Ada"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, _ := store.Get(ctx, "draft:3")
	var stored map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored[storage.TimestampKey] != float64(1_000_000) {
		t.Fatalf("expected timestamp in draft, got %v", stored)
	}

	clock.Advance(30 * time.Minute)
	draft, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "Ada"}, draft); diff != "" {
		t.Fatalf("fresh draft mismatch (-want +got):\n%s", diff)
	}

	clock.Advance(time.Hour)
	host := testsupport.NewHost(&formconfig.FormConfig{FormID: "draft"}, nil)
	if err := p.Initialize(ctx, plugin.NewContext("draft", host)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(host.Values()) != 0 {
		t.Fatalf("expired draft must not be restored, got %v", host.Values())
	}
	if _, err := store.Get(ctx, "draft:3"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expired draft should be deleted, got %v", err)
	}
}
