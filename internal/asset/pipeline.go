package asset

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Walker discovers the files of a source tree, calling emit for each one.
// It stops and returns emit's error if emit fails.
type Walker interface {
	Walk(ctx context.Context, emit func(LocalFile) error) error
}

// Stream delivers loaded assets to a single consumer. Assets arrive in no
// particular order. After Next reports false, Err holds the first producer
// error, if any.
type Stream struct {
	assets <-chan *Asset
	done   <-chan error
	cancel context.CancelFunc

	finished bool
	err      error
}

// Run starts the ingestion pipeline: one goroutine walks the tree and
// workers goroutines map and hash each file. A workers value below 1 uses
// GOMAXPROCS.
func Run(ctx context.Context, w Walker, workers int) *Stream {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	files := make(chan LocalFile, workers)
	assets := make(chan *Asset, workers)

	g.Go(func() error {
		defer close(files)
		return w.Walk(gctx, func(f LocalFile) error {
			select {
			case files <- f:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	for range workers {
		g.Go(func() error {
			for f := range files {
				a, err := Load(f)
				if err != nil {
					return err
				}
				select {
				case assets <- a:
				case <-gctx.Done():
					a.Close()
					return gctx.Err()
				}
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(assets)
	}()

	return &Stream{assets: assets, done: done, cancel: cancel}
}

// Next returns the next asset. The caller owns it and must Close it.
func (s *Stream) Next() (*Asset, bool) {
	if s.finished {
		return nil, false
	}
	a, ok := <-s.assets
	if !ok {
		s.finish()
		return nil, false
	}
	return a, true
}

// Err returns the error that ended the stream. It is only meaningful after
// Next has returned false or Close has been called.
func (s *Stream) Err() error {
	return s.err
}

// Close stops the producers and releases any assets still in flight. The
// stream is unusable afterwards.
func (s *Stream) Close() error {
	if s.finished {
		return s.err
	}
	s.cancel()
	for a := range s.assets {
		a.Close()
	}
	s.finish()
	if errors.Is(s.err, context.Canceled) {
		s.err = nil
	}
	return s.err
}

func (s *Stream) finish() {
	s.err = <-s.done
	s.finished = true
	s.cancel()
}
