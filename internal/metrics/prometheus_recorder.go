package metrics

import (
	"fmt"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"revsite/internal/site"
)

const namespace = "revsite"

// PrometheusRecorder implements site.Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	reg               *prom.Registry
	stageDuration     *prom.HistogramVec
	ingestedFiles     *prom.CounterVec
	inputFilesCreated prom.Counter
	storedBytes       prom.Counter
	routesPublished   *prom.CounterVec
	linkWarnings      prom.Counter
	cleanedInputFiles prom.Counter
	lastSuccess       prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of create, publish and cleanup runs",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.ingestedFiles = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_files_total",
			Help:      "Source files recorded in a revision, by kind",
		}, []string{"kind"})
		pr.inputFilesCreated = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "input_files_created_total",
			Help:      "Input file rows inserted (files not seen in any earlier revision)",
		})
		pr.storedBytes = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "content_store_bytes_written_total",
			Help:      "Bytes written to the content store",
		})
		pr.routesPublished = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "routes_published_total",
			Help:      "Routes written to the build directory, by kind",
		}, []string{"kind"})
		pr.linkWarnings = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "link_warnings_total",
			Help:      "Links that could not be resolved during publish",
		})
		pr.cleanedInputFiles = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cleaned_input_files_total",
			Help:      "Unreferenced input files removed by cleanup",
		})
		pr.lastSuccess = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last command finished successfully",
		})
		reg.MustRegister(pr.stageDuration, pr.ingestedFiles, pr.inputFilesCreated, pr.storedBytes,
			pr.routesPublished, pr.linkWarnings, pr.cleanedInputFiles, pr.lastSuccess)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncIngestedFile(kind string) {
	if p == nil || p.ingestedFiles == nil {
		return
	}
	p.ingestedFiles.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncInputFileCreated() {
	if p == nil || p.inputFilesCreated == nil {
		return
	}
	p.inputFilesCreated.Inc()
}

func (p *PrometheusRecorder) AddStoredBytes(n int64) {
	if p == nil || p.storedBytes == nil {
		return
	}
	p.storedBytes.Add(float64(n))
}

func (p *PrometheusRecorder) IncRoutePublished(kind string) {
	if p == nil || p.routesPublished == nil {
		return
	}
	p.routesPublished.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncLinkWarning() {
	if p == nil || p.linkWarnings == nil {
		return
	}
	p.linkWarnings.Inc()
}

func (p *PrometheusRecorder) AddCleanedInputFiles(n int) {
	if p == nil || p.cleanedInputFiles == nil {
		return
	}
	p.cleanedInputFiles.Add(float64(n))
}

// MarkSuccess records t as the time of the last successful command.
func (p *PrometheusRecorder) MarkSuccess(t time.Time) {
	if p == nil || p.lastSuccess == nil {
		return
	}
	p.lastSuccess.Set(float64(t.Unix()))
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text format. The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// Compile-time check that PrometheusRecorder implements site.Recorder
var _ site.Recorder = (*PrometheusRecorder)(nil)
