// Package metrics records revsite build and publish metrics with Prometheus.
//
// The site service only sees the site.Recorder interface and defaults to a
// no-op recorder. When a textfile path is configured, the CLI installs a
// PrometheusRecorder and writes its registry in the text exposition format
// at the end of the command, for collection by node_exporter's textfile
// collector.
package metrics
