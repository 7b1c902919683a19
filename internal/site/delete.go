package site

import (
	"context"
	"fmt"
)

// DeleteRevision removes a revision with its file list and route table.
// Input files stay until the next Cleanup.
func (s *Service) DeleteRevision(ctx context.Context, id int64) error {
	ok, err := s.database.DeleteRevision(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrRevisionNotFound, id)
	}
	s.logger.Info("revision deleted", "revision", id)
	return nil
}
