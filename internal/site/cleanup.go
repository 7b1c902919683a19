package site

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"revsite/internal/database/sqlc"
)

// CleanupStats summarizes one Cleanup run.
type CleanupStats struct {
	InputFiles     int
	RemovedEntries int
	MissingEntries int
}

// Cleanup deletes every input file no revision references, together with
// its Content Store entry. An entry that is already gone is logged and does
// not stop the cleanup.
func (s *Service) Cleanup(ctx context.Context) (*CleanupStats, error) {
	start := time.Now()
	stats := &CleanupStats{}

	n, err := s.database.RemoveUnreferencedInputFiles(ctx, func(f *sqlc.InputFile) error {
		if f.Contents != nil {
			return nil
		}

		key := hex.EncodeToString(f.ContentsHash)
		err := s.store.RemoveContent(ctx, key)
		switch {
		case err == nil:
			stats.RemovedEntries++
		case errors.Is(err, ErrContentNotFound):
			s.logger.Error("content store entry missing", "key", key, "path", f.LogicalPath)
			stats.MissingEntries++
		default:
			return fmt.Errorf("removing content of %s: %w", f.LogicalPath, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleaning up: %w", err)
	}
	stats.InputFiles = n

	s.recorder.AddCleanedInputFiles(n)
	s.recorder.ObserveStageDuration("cleanup", time.Since(start))
	s.logger.Info("cleanup finished",
		"input_files", stats.InputFiles,
		"removed_entries", stats.RemovedEntries,
		"missing_entries", stats.MissingEntries,
	)
	return stats, nil
}
