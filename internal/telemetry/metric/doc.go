// Package metric provides Prometheus metrics for fintrack-cli.
//
// A CLI process is short-lived, so metrics are not scraped over HTTP.
// Instead the registry is written once at exit to a file that the
// node_exporter textfile collector picks up (see WriteTextfile).
//
// All Registry methods are safe to call on a nil *Registry, which is
// how callers disable metrics.
package metric
