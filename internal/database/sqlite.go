package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"revsite/internal/database/migrations"
	"revsite/internal/database/sqlc"
	"revsite/internal/site"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteDatabase implements the site.Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

// NewSQLiteDatabase opens the database at path and applies any pending
// migrations. path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured
// and migrated.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    "",
	}
}

// OpenConnection opens and configures a SQLite database connection.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	// Connection pragmas go in the DSN so every pooled connection gets them.
	// Transactions begin IMMEDIATE: a writer holds the write lock from its
	// first statement, so cleanup never reads a snapshot a build is changing.
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if path != MemoryPath {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Revision operations

func (s *SQLiteDatabase) CreateRevision(ctx context.Context, createdAt time.Time, fn func(w site.RevisionWriter, rev *sqlc.Revision) error) (*sqlc.Revision, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	rev, err := qtx.InsertRevision(ctx, createdAt)
	if err != nil {
		return nil, fmt.Errorf("inserting revision: %w", err)
	}

	if err := fn(&revisionWriter{q: qtx}, &rev); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return &rev, nil
}

func (s *SQLiteDatabase) FindRevision(ctx context.Context, id int64) (*sqlc.Revision, error) {
	rev, err := s.queries.GetRevision(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding revision %d: %w", id, err)
	}
	return &rev, nil
}

func (s *SQLiteDatabase) FindLatestRevision(ctx context.Context) (*sqlc.Revision, error) {
	rev, err := s.queries.GetLatestRevision(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding latest revision: %w", err)
	}
	return &rev, nil
}

func (s *SQLiteDatabase) ListRevisions(ctx context.Context) ([]*sqlc.ListRevisionSummariesRow, error) {
	rows, err := s.queries.ListRevisionSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}

	result := make([]*sqlc.ListRevisionSummariesRow, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) DeleteRevision(ctx context.Context, id int64) (bool, error) {
	n, err := s.queries.DeleteRevision(ctx, id)
	if err != nil {
		return false, fmt.Errorf("deleting revision %d: %w", id, err)
	}
	return n > 0, nil
}

// Route and input file operations

func (s *SQLiteDatabase) FindRoutesForRevision(ctx context.Context, revisionID int64) ([]*sqlc.Route, error) {
	routes, err := s.queries.ListRoutesForRevision(ctx, revisionID)
	if err != nil {
		return nil, fmt.Errorf("finding routes for revision %d: %w", revisionID, err)
	}

	result := make([]*sqlc.Route, len(routes))
	for i := range routes {
		result[i] = &routes[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) FindInputFilesForRevision(ctx context.Context, revisionID int64) ([]*sqlc.InputFile, error) {
	files, err := s.queries.ListInputFilesForRevision(ctx, revisionID)
	if err != nil {
		return nil, fmt.Errorf("finding input files for revision %d: %w", revisionID, err)
	}

	result := make([]*sqlc.InputFile, len(files))
	for i := range files {
		result[i] = &files[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) FindInputFile(ctx context.Context, id string) (*sqlc.InputFile, error) {
	f, err := s.queries.GetInputFile(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding input file: %w", err)
	}
	return &f, nil
}

func (s *SQLiteDatabase) FindPage(ctx context.Context, inputFileID string) (*sqlc.Page, error) {
	p, err := s.queries.GetPage(ctx, inputFileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding page: %w", err)
	}
	return &p, nil
}

// RemoveUnreferencedInputFiles hands each orphaned input file to fn and then
// deletes the rows. Pages go with them through ON DELETE CASCADE. The
// transaction holds the write lock throughout, so no revision can start
// referencing a file between the listing and its removal.
func (s *SQLiteDatabase) RemoveUnreferencedInputFiles(ctx context.Context, fn func(f *sqlc.InputFile) error) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	files, err := qtx.ListUnreferencedInputFiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing unreferenced input files: %w", err)
	}

	for i := range files {
		f := &files[i]
		if err := fn(f); err != nil {
			return 0, err
		}
		if err := qtx.DeleteInputFile(ctx, f.ID); err != nil {
			return 0, fmt.Errorf("deleting input file %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return len(files), nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters string, startedAt time.Time) (*sqlc.Operation, error) {
	op, err := s.queries.InsertOperation(ctx, sqlc.InsertOperationParams{
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  startedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &op, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string, finishedAt time.Time) error {
	err := s.queries.UpdateOperationFinished(ctx, sqlc.UpdateOperationFinishedParams{
		Status:     status,
		FinishedAt: sql.NullTime{Time: finishedAt, Valid: true},
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*sqlc.Operation, error) {
	ops, err := s.queries.ListOperations(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}

	result := make([]*sqlc.Operation, len(ops))
	for i := range ops {
		result[i] = &ops[i]
	}
	return result, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// revisionWriter writes through the transaction of one CreateRevision call.
type revisionWriter struct {
	q *sqlc.Queries
}

func (w *revisionWriter) CreateInputFile(ctx context.Context, f sqlc.InsertInputFileParams) (bool, error) {
	n, err := w.q.CountInputFilesByID(ctx, f.ID)
	if err != nil {
		return false, fmt.Errorf("checking for existing input file: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	if err := w.q.InsertInputFile(ctx, f); err != nil {
		return false, fmt.Errorf("inserting input file %s: %w", f.LogicalPath, err)
	}
	return true, nil
}

func (w *revisionWriter) CreateRevisionFile(ctx context.Context, revisionID int64, inputFileID string) error {
	err := w.q.InsertRevisionFile(ctx, sqlc.InsertRevisionFileParams{
		RevisionID:  revisionID,
		InputFileID: inputFileID,
	})
	if err != nil {
		return fmt.Errorf("linking input file to revision: %w", err)
	}
	return nil
}

func (w *revisionWriter) CreateRoute(ctx context.Context, revisionID int64, route, inputFileID string) error {
	err := w.q.InsertRoute(ctx, sqlc.InsertRouteParams{
		RevisionID:  revisionID,
		Route:       route,
		InputFileID: inputFileID,
	})
	if err != nil {
		return fmt.Errorf("inserting route %s: %w", route, err)
	}
	return nil
}

func (w *revisionWriter) CreatePage(ctx context.Context, p sqlc.InsertPageParams) error {
	if err := w.q.InsertPage(ctx, p); err != nil {
		return fmt.Errorf("inserting page: %w", err)
	}
	return nil
}

// Compile-time checks that SQLiteDatabase implements the site interfaces
var (
	_ site.Database       = (*SQLiteDatabase)(nil)
	_ site.RevisionWriter = (*revisionWriter)(nil)
)
