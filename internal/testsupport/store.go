package testsupport

import (
	"context"
	"testing"

	"storygraph/internal/config"
	"storygraph/internal/registry"
)

// MustOpenStore opens a registry.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustUpsert applies patch to the asset id and returns the stored record.
func MustUpsert(t testing.TB, store *registry.Store, id string, patch registry.Patch) *registry.Asset {
	t.Helper()

	asset, err := store.Upsert(context.Background(), id, patch)
	if err != nil {
		t.Fatalf("store.Upsert(%s): %v", id, err)
	}
	return asset
}

// MustGet loads the asset id or fails the test.
func MustGet(t testing.TB, store *registry.Store, id string) *registry.Asset {
	t.Helper()

	asset, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("store.Get(%s): %v", id, err)
	}
	return asset
}
