package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	tables := []string{"input_files", "revisions", "revision_files", "routes", "pages", "operations", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus(t *testing.T) {
	t.Run("fresh database needs migration", func(t *testing.T) {
		db := openTestDB(t)
		if err := CheckDBMigrationStatus(db); !errors.Is(err, ErrNeedsMigration) {
			t.Errorf("CheckDBMigrationStatus() = %v, want %v", err, ErrNeedsMigration)
		}
	})

	t.Run("migrated database is current", func(t *testing.T) {
		db := openTestDB(t)
		if err := MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() failed: %v", err)
		}
		if err := CheckDBMigrationStatus(db); err != nil {
			t.Errorf("CheckDBMigrationStatus() = %v", err)
		}
	})
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("Second MigrateUp() failed: %v", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	if err := MigrateDown(db); err != nil {
		t.Fatalf("MigrateDown() failed: %v", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='input_files'").Scan(&n); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if n != 0 {
		t.Error("input_files still exists after MigrateDown()")
	}
}

func TestLatestVersion(t *testing.T) {
	v, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if v != 2 {
		t.Errorf("LatestVersion() = %d, want 2", v)
	}
}

func TestForeignKeyConstraints(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO revision_files (revision_id, input_file_id) VALUES (42, 'missing')`)
	if err == nil {
		t.Error("Expected foreign key constraint violation, but insert succeeded")
	}
}

func TestSchema_RevisionDeleteCascades(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	stmts := []string{
		`INSERT INTO input_files (id, logical_path, contents_hash, contents, created_at) VALUES ('h,static/a', 'static/a', x'00', NULL, datetime('now'))`,
		`INSERT INTO revisions (id, created_at) VALUES (1, datetime('now'))`,
		`INSERT INTO revision_files (revision_id, input_file_id) VALUES (1, 'h,static/a')`,
		`INSERT INTO routes (revision_id, route, input_file_id) VALUES (1, 'a', 'h,static/a')`,
		`DELETE FROM revisions WHERE id = 1`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("Exec(%q) failed: %v", s, err)
		}
	}

	for _, table := range []string{"revision_files", "routes"} {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows after revision delete, want 0", table, n)
		}
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM input_files").Scan(&n); err != nil {
		t.Fatalf("counting input_files: %v", err)
	}
	if n != 1 {
		t.Errorf("input_files has %d rows, want 1 (only cleanup removes them)", n)
	}
}

func TestSchema_RoutePrimaryKey(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	stmts := []string{
		`INSERT INTO input_files (id, logical_path, contents_hash, created_at) VALUES ('a', 'static/x', x'00', datetime('now'))`,
		`INSERT INTO input_files (id, logical_path, contents_hash, created_at) VALUES ('b', 'content/x.md', x'01', datetime('now'))`,
		`INSERT INTO revisions (id, created_at) VALUES (1, datetime('now'))`,
		`INSERT INTO routes (revision_id, route, input_file_id) VALUES (1, 'x', 'a')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("Exec(%q) failed: %v", s, err)
		}
	}

	if _, err := db.Exec(`INSERT INTO routes (revision_id, route, input_file_id) VALUES (1, 'x', 'b')`); err == nil {
		t.Error("Expected primary key violation for duplicate route, but insert succeeded")
	}
}

// openTestDB opens an in-memory SQLite database pinned to one connection.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	return db
}
