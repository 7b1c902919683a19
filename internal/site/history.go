package site

import (
	"context"
	"fmt"

	"revsite/internal/database/sqlc"
)

// ListRevisions returns every revision with its file and route counts,
// newest first.
func (s *Service) ListRevisions(ctx context.Context) ([]*sqlc.ListRevisionSummariesRow, error) {
	revs, err := s.database.ListRevisions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}
	return revs, nil
}

// GetHistory returns the most recent operations, ordered newest first.
func (s *Service) GetHistory(ctx context.Context, limit int) ([]*sqlc.Operation, error) {
	ops, err := s.database.ListOperations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
