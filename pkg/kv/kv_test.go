package kv_test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/podtalk/podtalk/pkg/kv"
)

// stores returns one of each Store implementation. Badger runs in-memory
// so tests touch no disk.
func stores(t *testing.T) map[string]kv.Store {
	t.Helper()
	badger, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { badger.Close() })
	return map[string]kv.Store{
		"memory": kv.NewMemory(),
		"badger": badger,
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	t.Parallel()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := kv.Key{"diarization", "show/ep-1", "1200s"}

			if _, err := store.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("Get on empty store: want ErrNotFound, got %v", err)
			}

			if err := store.Set(ctx, key, []byte("v1")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !bytes.Equal(got, []byte("v1")) {
				t.Errorf("Get = %q, want v1", got)
			}

			if err := store.Set(ctx, key, []byte("v2")); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, _ = store.Get(ctx, key)
			if !bytes.Equal(got, []byte("v2")) {
				t.Errorf("Get after overwrite = %q, want v2", got)
			}

			if err := store.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := store.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Errorf("Get after delete: want ErrNotFound, got %v", err)
			}

			// Deleting an absent key is not an error.
			if err := store.Delete(ctx, key); err != nil {
				t.Errorf("Delete absent key: %v", err)
			}
		})
	}
}

func TestStore_ListPrefix(t *testing.T) {
	t.Parallel()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed := map[string]kv.Key{
				"a": {"diarization", "show-a/ep-1", "1200s"},
				"b": {"diarization", "show-a/ep-2", "1200s"},
				"c": {"diarization", "show-ab/ep-1", "1200s"},
				"d": {"other", "show-a/ep-1"},
			}
			for v, k := range seed {
				if err := store.Set(ctx, k, []byte(v)); err != nil {
					t.Fatalf("Set: %v", err)
				}
			}

			var got []string
			for e, err := range store.List(ctx, kv.Key{"diarization", "show-a/ep-1"}) {
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				got = append(got, string(e.Value))
			}
			// "show-a/ep-1" must not match "show-a/ep-2" or other prefixes
			// that merely share the encoded text.
			if !slices.Equal(got, []string{"a"}) {
				t.Errorf("List = %v, want [a]", got)
			}

			got = got[:0]
			for e, err := range store.List(ctx, kv.Key{"diarization"}) {
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				got = append(got, string(e.Value))
			}
			slices.Sort(got)
			if !slices.Equal(got, []string{"a", "b", "c"}) {
				t.Errorf("List(diarization) = %v, want [a b c]", got)
			}
		})
	}
}

func TestStore_ListDecodesKeys(t *testing.T) {
	t.Parallel()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := kv.Key{"diarization", "show/ep-1", "1200s"}
			if err := store.Set(ctx, key, []byte("v")); err != nil {
				t.Fatalf("Set: %v", err)
			}

			for e, err := range store.List(ctx, kv.Key{"diarization"}) {
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				if !slices.Equal(e.Key, key) {
					t.Errorf("listed key = %v, want %v", e.Key, key)
				}
			}
		})
	}
}
