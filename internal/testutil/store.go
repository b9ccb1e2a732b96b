package testutil

import (
	"testing"

	"datmo-go/internal/engine"
	"datmo-go/internal/store"
)

// NewTestStore creates a new in-memory document store with the schema
// applied. The store is automatically closed when the test completes.
func NewTestStore(t *testing.T, clock engine.Clock, idgen engine.IDGenerator) *store.Store {
	t.Helper()

	s, err := store.Open(":memory:", clock, idgen)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}
