package testsupport

import (
	"context"
	"testing"

	"emoroute/internal/config"
	"emoroute/internal/runstore"
)

// MustOpenStore opens a runstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *runstore.Store {
	t.Helper()

	store, err := runstore.Open(cfg)
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun creates a run row for tests using the provided store.
func NewRun(t testing.TB, store *runstore.Store, datasets ...string) *runstore.Run {
	t.Helper()

	run, err := store.CreateRun(context.Background(), datasets, false)
	if err != nil {
		t.Fatalf("store.CreateRun: %v", err)
	}
	return run
}
