package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"revsite/internal/config"
	"revsite/internal/contentstore"
	"revsite/internal/database"
	"revsite/internal/database/sqlc"
	"revsite/internal/metrics"
	"revsite/internal/site"
	"revsite/internal/watch"
)

// SiteApp is the application layer between the CLI and site.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the DB lifecycle on Close.
type SiteApp struct {
	cfg      *config.Config
	db       *database.SQLiteDatabase
	service  *site.Service
	clock    site.Clock
	logger   *slog.Logger
	recorder *metrics.PrometheusRecorder
	op       *Operation
	logFile  *os.File
}

// NewSiteApp creates a fully wired SiteApp from the given config.
// operation identifies the CLI command being run (e.g. "create", "publish").
// The caller must call Close when done.
func NewSiteApp(ctx context.Context, cfg *config.Config, operation string) (*SiteApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := contentstore.NewContentStoreFromConfig(ctx, cfg.ContentStore)
	if err != nil {
		return nil, fmt.Errorf("creating content store: %w", err)
	}
	if err := store.ValidateSetup(ctx); err != nil {
		return nil, fmt.Errorf("content store not usable: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	opID := uuid.NewString()
	logger, logFile, err := newLogger(cfg.LogDir, opID, parseLevel(cfg.LogLevel))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	var recorder *metrics.PrometheusRecorder
	var siteRecorder site.Recorder
	if cfg.Metrics.Textfile != "" {
		recorder = metrics.NewPrometheusRecorder(nil)
		siteRecorder = recorder
	}

	clock := site.RealClock{}
	svc := site.NewService(db, store, logger, clock, siteRecorder, site.Options{
		Workers:     cfg.Workers,
		SkipUnknown: cfg.UnknownFiles == config.UnknownFilesSkip,
		Ignore:      cfg.Filesystem.Ignore,
	})

	return &SiteApp{
		cfg:      cfg,
		db:       db,
		service:  svc,
		clock:    clock,
		logger:   logger,
		recorder: recorder,
		op:       NewOperation(operation, clock.Now()),
		logFile:  logFile,
	}, nil
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for DB-mutating commands.
func (a *SiteApp) persistOperation(ctx context.Context, parameters string) error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(ctx, a.op.Operation, parameters, a.op.StartedAt)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// CreateRevision resolves the source directory and builds a new revision from it.
func (a *SiteApp) CreateRevision(ctx context.Context, rawPath string) (*sqlc.Revision, *site.BuildStats, error) {
	src, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving path: %w", err)
	}
	if err := a.persistOperation(ctx, src); err != nil {
		return nil, nil, err
	}
	rev, stats, err := a.service.CreateRevision(ctx, src)
	return rev, stats, a.op.Record(err)
}

// Publish renders a revision into opts.BuildDir. Empty BaseURL and BuildDir
// fall back to the [publish] config section.
func (a *SiteApp) Publish(ctx context.Context, opts site.PublishOptions) (*site.PublishResult, error) {
	opts, err := a.publishOptions(opts)
	if err != nil {
		return nil, err
	}

	params := fmt.Sprintf("revision=%d base_url=%s build_dir=%s", opts.RevisionID, opts.BaseURL, opts.BuildDir)
	if err := a.persistOperation(ctx, params); err != nil {
		return nil, err
	}
	result, err := a.service.Publish(ctx, opts)
	return result, a.op.Record(err)
}

// publishOptions fills in the configured defaults.
func (a *SiteApp) publishOptions(opts site.PublishOptions) (site.PublishOptions, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = a.cfg.Publish.BaseURL
	}
	if opts.BuildDir == "" {
		opts.BuildDir = a.cfg.Publish.BuildDir
	}
	buildDir, err := filepath.Abs(opts.BuildDir)
	if err != nil {
		return opts, fmt.Errorf("resolving build directory: %w", err)
	}
	opts.BuildDir = buildDir
	if opts.Concurrency == 0 {
		opts.Concurrency = a.cfg.Workers
	}
	return opts, nil
}

// DeleteRevision removes a revision. Its files stay until the next cleanup.
func (a *SiteApp) DeleteRevision(ctx context.Context, id int64) error {
	if err := a.persistOperation(ctx, strconv.FormatInt(id, 10)); err != nil {
		return err
	}
	return a.op.Record(a.service.DeleteRevision(ctx, id))
}

// Cleanup removes input files and content store entries no revision uses.
func (a *SiteApp) Cleanup(ctx context.Context) (*site.CleanupStats, error) {
	if err := a.persistOperation(ctx, ""); err != nil {
		return nil, err
	}
	stats, err := a.service.Cleanup(ctx)
	return stats, a.op.Record(err)
}

// ListRevisions returns every revision, newest first.
func (a *SiteApp) ListRevisions(ctx context.Context) ([]*sqlc.ListRevisionSummariesRow, error) {
	return a.service.ListRevisions(ctx)
}

// GetHistory returns the most recent operations.
func (a *SiteApp) GetHistory(ctx context.Context, limit int) ([]*sqlc.Operation, error) {
	return a.service.GetHistory(ctx, limit)
}

// Watch builds and publishes the site at rawPath, then repeats that whenever
// the source tree changes, until ctx is cancelled. A failed rebuild is
// logged and the previous output stays in place.
func (a *SiteApp) Watch(ctx context.Context, rawPath string, opts site.PublishOptions) error {
	src, err := filepath.Abs(rawPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	opts, err = a.publishOptions(opts)
	if err != nil {
		return err
	}
	if err := a.persistOperation(ctx, src); err != nil {
		return err
	}

	rebuild := func(ctx context.Context) error {
		rev, _, err := a.service.CreateRevision(ctx, src)
		if err != nil {
			return err
		}
		publishOpts := opts
		publishOpts.RevisionID = rev.ID
		_, err = a.service.Publish(ctx, publishOpts)
		return err
	}

	if err := rebuild(ctx); err != nil {
		a.logger.Error("initial build failed", "error", err)
	}

	w := watch.New(src, a.logger, watch.DefaultDebounce, rebuild)
	return a.op.Record(w.Run(ctx))
}

// Close finalizes the operation and closes all resources.
// Persisted operations get their final status recorded; the metrics
// textfile is written when configured.
func (a *SiteApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(context.Background(), a.op.ID, a.op.Status, a.clock.Now()); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if a.recorder != nil {
		if a.op.Status == StatusSuccess {
			a.recorder.MarkSuccess(a.clock.Now())
		}
		if err := a.recorder.WriteTextfile(a.cfg.Metrics.Textfile); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
