package site

import "time"

// Recorder receives build and publish metrics. All methods must be cheap and
// safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncIngestedFile(kind string)
	IncInputFileCreated()
	AddStoredBytes(n int64)
	IncRoutePublished(kind string)
	IncLinkWarning()
	AddCleanedInputFiles(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncIngestedFile(string)                     {}
func (NoopRecorder) IncInputFileCreated()                       {}
func (NoopRecorder) AddStoredBytes(int64)                       {}
func (NoopRecorder) IncRoutePublished(string)                   {}
func (NoopRecorder) IncLinkWarning()                            {}
func (NoopRecorder) AddCleanedInputFiles(int)                   {}
