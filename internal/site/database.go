package site

import (
	"context"
	"time"

	"revsite/internal/database/sqlc"
)

// Database provides the metadata store operations the site service needs.
// Lookups that find nothing return (nil, nil).
type Database interface {
	// Revision operations

	// CreateRevision inserts a revision and calls fn with a writer bound to the
	// same transaction. The transaction commits only if fn returns nil; on any
	// error nothing written for the revision becomes visible.
	CreateRevision(ctx context.Context, createdAt time.Time, fn func(w RevisionWriter, rev *sqlc.Revision) error) (*sqlc.Revision, error)

	// FindRevision returns a revision by id.
	FindRevision(ctx context.Context, id int64) (*sqlc.Revision, error)

	// FindLatestRevision returns the most recently created revision.
	FindLatestRevision(ctx context.Context) (*sqlc.Revision, error)

	// ListRevisions returns every revision with its file and route counts,
	// newest first.
	ListRevisions(ctx context.Context) ([]*sqlc.ListRevisionSummariesRow, error)

	// DeleteRevision deletes a revision together with its revision files and
	// routes. It reports whether the revision existed.
	DeleteRevision(ctx context.Context, id int64) (bool, error)

	// Route and input file operations

	// FindRoutesForRevision returns the route table of a revision.
	FindRoutesForRevision(ctx context.Context, revisionID int64) ([]*sqlc.Route, error)

	// FindInputFilesForRevision returns every input file a revision references.
	FindInputFilesForRevision(ctx context.Context, revisionID int64) ([]*sqlc.InputFile, error)

	// FindInputFile returns an input file by id.
	FindInputFile(ctx context.Context, id string) (*sqlc.InputFile, error)

	// FindPage returns the page metadata of a content input file.
	FindPage(ctx context.Context, inputFileID string) (*sqlc.Page, error)

	// RemoveUnreferencedInputFiles calls fn for every input file no revision
	// references and then deletes those rows, all in one transaction. An error
	// from fn aborts and rolls back. Returns the number of rows deleted.
	RemoveUnreferencedInputFiles(ctx context.Context, fn func(f *sqlc.InputFile) error) (int, error)

	// Operation tracking

	// CreateOperation records the start of a CLI operation.
	CreateOperation(ctx context.Context, operation, parameters string, startedAt time.Time) (*sqlc.Operation, error)

	// FinishOperation records the outcome of an operation.
	FinishOperation(ctx context.Context, id int64, status string, finishedAt time.Time) error

	// ListOperations returns up to limit operations, newest first.
	ListOperations(ctx context.Context, limit int) ([]*sqlc.Operation, error)

	// Close closes the database connection.
	Close() error
}

// RevisionWriter writes the rows of a revision being built. It is only valid
// inside the CreateRevision callback and must be used from one goroutine.
type RevisionWriter interface {
	// CreateInputFile inserts the input file unless a row with the same id
	// exists. It reports whether a row was inserted.
	CreateInputFile(ctx context.Context, f sqlc.InsertInputFileParams) (bool, error)

	// CreateRevisionFile links an input file to the revision.
	CreateRevisionFile(ctx context.Context, revisionID int64, inputFileID string) error

	// CreateRoute maps an output path of the revision to an input file. A
	// route can only be used once per revision.
	CreateRoute(ctx context.Context, revisionID int64, route, inputFileID string) error

	// CreatePage inserts page metadata for a content input file.
	CreatePage(ctx context.Context, p sqlc.InsertPageParams) error
}
