// Package test holds store integration tests running on the SQLite driver.
package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hrygo/stridesense/internal/profile"
	"github.com/hrygo/stridesense/store"
	"github.com/hrygo/stridesense/store/db/sqlite"
)

// NewTestingStore creates a fully migrated store on a throwaway SQLite file.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	testProfile := &profile.Profile{
		Mode:   "prod",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "stridesense_test.db"),
	}

	driver, err := sqlite.NewDB(testProfile)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	ts := store.New(driver, testProfile)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if err := ts.Close(); err != nil {
			t.Logf("failed to close test store: %v", err)
		}
	})

	return ts
}
