package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"fibretrace/internal/infra/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	info, err := store.Put(ctx, "reports/a.json", strings.NewReader(`{"ok":true}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"template": "lineage-manifest"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(`{"ok":true}`)) || info.ContentType != "application/json" {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := store.Get(ctx, "reports/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", body)
	}
	if got.Metadata["template"] != "lineage-manifest" {
		t.Fatalf("metadata lost: %+v", got.Metadata)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate key to fail")
	}
}

func TestHeadAndDelete(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("data"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := store.Head(ctx, "k"); err != nil {
		t.Fatalf("head: %v", err)
	}
	if _, err := store.Head(ctx, "missing"); err == nil {
		t.Fatalf("head must fail for missing key")
	}

	deleted, err := store.Delete(ctx, "k")
	if err != nil || !deleted {
		t.Fatalf("delete = %v, %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "k")
	if err != nil || deleted {
		t.Fatalf("second delete = %v, %v", deleted, err)
	}
}

func TestListFiltersByPrefixSorted(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"reports/b", "reports/a", "exports/c"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "reports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "reports/a" || infos[1].Key != "reports/b" {
		t.Fatalf("unexpected listing %+v", infos)
	}
}

func TestPresignUnsupported(t *testing.T) {
	store := New()
	if _, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
