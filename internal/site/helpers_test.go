package site_test

import (
	"database/sql"
	"testing"

	"revsite/internal/contentstore"
	"revsite/internal/database"
	"revsite/internal/site"
	"revsite/internal/testutil"
)

type testEnv struct {
	svc   *site.Service
	db    *database.SQLiteDatabase
	sqlDB *sql.DB
	store *contentstore.FileSystemStore
	clock *testutil.StubClock
}

// newTestEnv wires a Service to an in-memory database and a content store
// in a temporary directory.
func newTestEnv(t *testing.T, opts site.Options) *testEnv {
	t.Helper()

	db, sqlDB := testutil.NewTestDatabase(t)
	store, err := contentstore.NewFileSystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	clock := testutil.FixedClock()

	return &testEnv{
		svc:   site.NewService(db, store, site.NewNopLogger(), clock, nil, opts),
		db:    db,
		sqlDB: sqlDB,
		store: store,
		clock: clock,
	}
}
