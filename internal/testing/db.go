// Package testing provides testing utilities and helpers shared across packages.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/dividends/internal/database"
)

// NewTestDB creates a temporary SQLite database with the embedded schema for
// name applied ("lookup_cache"; unknown names get an empty database).
// Returns the database and an idempotent cleanup function.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), name+".db")
	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileCache,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	}
}
