package site

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"revsite/internal/asset"
	"revsite/internal/database/sqlc"
	"revsite/internal/frontmatter"
	"revsite/internal/fs"
	"revsite/internal/render"
)

// BuildStats summarizes one CreateRevision run.
type BuildStats struct {
	Files         int
	NewInputFiles int
	Routes        int
	Pages         int
	Skipped       int
	StoredBytes   int64
}

// CreateRevision ingests the source tree at src and records it as a new
// revision. Files are hashed in parallel and written by a single consumer
// inside one metadata transaction: on any error nothing of the revision
// becomes visible. Content Store entries written before the failure stay
// behind until Cleanup.
func (s *Service) CreateRevision(ctx context.Context, src string) (*sqlc.Revision, *BuildStats, error) {
	start := time.Now()

	info, err := os.Stat(src)
	if err != nil {
		return nil, nil, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("source is not a directory: %s", src)
	}

	stream := asset.Run(ctx, fs.NewWalker(src, s.opts.Ignore), s.opts.Workers)
	defer stream.Close()

	stats := &BuildStats{}
	rev, err := s.database.CreateRevision(ctx, s.clock.Now(), func(w RevisionWriter, rev *sqlc.Revision) error {
		for {
			a, ok := stream.Next()
			if !ok {
				break
			}
			err := s.ingest(ctx, w, rev.ID, a, stats)
			a.Close()
			if err != nil {
				return err
			}
		}
		return stream.Err()
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating revision: %w", err)
	}

	s.recorder.ObserveStageDuration("create", time.Since(start))
	s.logger.Info("revision created",
		"revision", rev.ID,
		"files", stats.Files,
		"new_input_files", stats.NewInputFiles,
		"routes", stats.Routes,
		"pages", stats.Pages,
		"stored_bytes", stats.StoredBytes,
	)
	return rev, stats, nil
}

// ingest records one asset in the revision being built.
func (s *Service) ingest(ctx context.Context, w RevisionWriter, revisionID int64, a *asset.Asset, stats *BuildStats) error {
	logicalPath := a.Meta.LogicalPath

	kind := Classify(logicalPath)
	if kind == KindUnknown {
		if s.opts.SkipUnknown {
			s.logger.Warn("skipping file outside the source directories", "path", logicalPath)
			stats.Skipped++
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUnknownFileKind, logicalPath)
	}

	if isStylesheet(kind, logicalPath) {
		minified, err := render.MinifyCSS(a.Bytes())
		if err != nil {
			return fmt.Errorf("%s: %w", logicalPath, err)
		}
		if err := a.Replace(minified); err != nil {
			return fmt.Errorf("replacing %s: %w", logicalPath, err)
		}
	}

	key := a.Hash.String()
	id := key + "," + logicalPath
	data := a.Bytes()
	inline := IsInline(logicalPath)

	var contents []byte
	if inline {
		// An empty inline file is stored as an empty blob, not NULL.
		contents = data
		if contents == nil {
			contents = []byte{}
		}
	}

	created, err := w.CreateInputFile(ctx, sqlc.InsertInputFileParams{
		ID:           id,
		LogicalPath:  logicalPath,
		ContentsHash: bytes.Clone(a.Hash[:]),
		Contents:     contents,
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		return err
	}
	if created {
		stats.NewInputFiles++
		s.recorder.IncInputFileCreated()
	}

	if !inline {
		if err := s.storeContent(ctx, key, data, stats); err != nil {
			return fmt.Errorf("storing %s: %w", logicalPath, err)
		}
	}

	if err := w.CreateRevisionFile(ctx, revisionID, id); err != nil {
		return err
	}

	if route, ok := Route(kind, logicalPath, a.Hash); ok {
		if err := w.CreateRoute(ctx, revisionID, route, id); err != nil {
			return err
		}
		stats.Routes++
	}

	if kind == KindContent && isMarkdown(logicalPath) {
		doc, err := frontmatter.Parse(string(data))
		if err != nil {
			return fmt.Errorf("parsing front matter of %s: %w", logicalPath, err)
		}
		if created {
			page, err := s.newPage(id, doc)
			if err != nil {
				return fmt.Errorf("%s: %w", logicalPath, err)
			}
			if err := w.CreatePage(ctx, page); err != nil {
				return err
			}
			stats.Pages++
		}
	}

	stats.Files++
	s.recorder.IncIngestedFile(kind.String())
	s.logger.Debug("ingested file", "path", logicalPath, "kind", kind.String(), "new", created)
	return nil
}

// storeContent writes data to the Content Store unless an entry for key
// exists. Entries are content-addressed, so an existing entry must have the
// same length.
func (s *Service) storeContent(ctx context.Context, key string, data []byte, stats *BuildStats) error {
	size, exists, err := s.store.StatContent(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		if size != int64(len(data)) {
			return fmt.Errorf("%w: entry %s holds %d bytes, source has %d", ErrIntegrity, key, size, len(data))
		}
		return nil
	}

	if err := s.store.PutContent(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return err
	}
	stats.StoredBytes += int64(len(data))
	s.recorder.AddStoredBytes(int64(len(data)))
	return nil
}

// newPage turns a parsed content file into its page row.
func (s *Service) newPage(inputFileID string, doc frontmatter.Document) (sqlc.InsertPageParams, error) {
	page := sqlc.InsertPageParams{
		InputFileID: inputFileID,
		Offset:      int64(doc.Offset),
	}
	if !doc.HasFrontMatter {
		return page, nil
	}

	meta, err := frontmatter.DecodeMeta(doc.FrontMatter, s.clock.Now())
	if err != nil {
		return page, err
	}

	page.FrontMatter = sql.NullString{String: doc.FrontMatter, Valid: true}
	page.Date = nullTime(meta.Date)
	page.Description = nullString(meta.Description)
	page.Excerpt = nullString(meta.Excerpt)
	page.Draft = meta.Draft
	page.ExpiryDate = nullTime(meta.ExpiryDate)
	page.Keywords = nullString(meta.Keywords)
	page.Template = nullString(meta.Template)
	page.PublishDate = nullTime(meta.PublishDate)
	page.Summary = nullString(meta.Summary)
	page.Title = nullString(meta.Title)
	return page, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
