// Package site is the orchestration layer of revsite: it builds revisions
// from a source tree, publishes them into an output tree and reclaims
// storage no revision needs any more.
package site

// Options tunes the Service.
type Options struct {
	// Workers is the number of hashing workers; 0 uses GOMAXPROCS.
	Workers int
	// SkipUnknown leaves files outside the source subdirectories out of a
	// revision instead of failing the build.
	SkipUnknown bool
	// Ignore holds gitignore-style patterns applied to every source subtree.
	Ignore []string
}

// Service coordinates the metadata store and the Content Store to perform
// the operations needed by the CLI.
type Service struct {
	database Database
	store    ContentStore
	logger   Logger
	clock    Clock
	recorder Recorder
	opts     Options
}

// NewService creates a new Service with the provided dependencies. A nil
// recorder disables metrics.
func NewService(database Database, store ContentStore, logger Logger, clock Clock, recorder Recorder, opts Options) *Service {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	return &Service{
		database: database,
		store:    store,
		logger:   logger,
		clock:    clock,
		recorder: recorder,
		opts:     opts,
	}
}
