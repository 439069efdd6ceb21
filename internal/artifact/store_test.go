package artifact

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"fs":     fs,
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			info, err := store.Put(ctx, "schemes/exp/run1.csv", strings.NewReader("base,a\n0,1\n"), PutOptions{
				ContentType: "text/csv",
				Metadata:    map[string]string{"method": "moat"},
			})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Key != "schemes/exp/run1.csv" || info.Size != 11 {
				t.Fatalf("put info = %+v", info)
			}

			// Artifacts are immutable: a second put on the same key fails.
			if _, err := store.Put(ctx, "schemes/exp/run1.csv", strings.NewReader("x"), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("overwrite error = %v, want ErrExists", err)
			}

			got, rc, err := store.Get(ctx, "schemes/exp/run1.csv")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, err := io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(body) != "base,a\n0,1\n" {
				t.Fatalf("body = %q", body)
			}
			if got.ContentType != "text/csv" || got.Metadata["method"] != "moat" {
				t.Fatalf("get info = %+v", got)
			}

			if _, _, err := store.Get(ctx, "schemes/absent"); err == nil {
				t.Fatal("expected missing key to fail")
			}

			if _, err := store.Put(ctx, "schemes/exp/run2.csv", strings.NewReader("b"), PutOptions{}); err != nil {
				t.Fatalf("second put: %v", err)
			}
			if _, err := store.Put(ctx, "other/run3.csv", strings.NewReader("c"), PutOptions{}); err != nil {
				t.Fatalf("third put: %v", err)
			}
			infos, err := store.List(ctx, "schemes/exp/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(infos) != 2 || infos[0].Key != "schemes/exp/run1.csv" || infos[1].Key != "schemes/exp/run2.csv" {
				t.Fatalf("list = %+v", infos)
			}
		})
	}
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}
	for _, key := range []string{"../escape", "a/../../b", ""} {
		if _, err := fs.Put(context.Background(), key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
	}
}
