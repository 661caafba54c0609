// Package testutil provides shared test helpers for setting up mapping stores.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/botpilote/ghlbridge/internal/mapping"
)

// TestStore creates a temporary SQLite mapping store that is automatically cleaned up.
func TestStore(t *testing.T) *mapping.Store {
	t.Helper()

	store, err := mapping.Open(filepath.Join(t.TempDir(), "ghlbridge-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
