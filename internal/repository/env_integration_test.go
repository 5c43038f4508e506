//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/taskfolio/taskfolio/internal/testutil"
)

// newRepoTestEnv connects to the test database, applies migrations, and
// hands back a clean repository. Tests against the shared database are
// serialized with an advisory lock.
func newRepoTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()

	databaseURL := testutil.RequireEnv(t, "TEST_DATABASE_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	if err := Migrate(ctx, databaseURL); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.pool)
	if err != nil {
		t.Fatalf("AcquireDBLock failed: %v", err)
	}
	t.Cleanup(func() {
		if err := unlock(); err != nil {
			t.Errorf("unlock failed: %v", err)
		}
	})

	if err := testutil.TruncateAll(ctx, repo.pool); err != nil {
		t.Fatalf("TruncateAll failed: %v", err)
	}

	return ctx, repo
}
