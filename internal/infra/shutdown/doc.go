// Package shutdown coordinates process exit for fintrack-cli.
//
// A signal-aware root context lets SIGINT or SIGTERM cancel an
// in-flight API call, and registered exit hooks (closing the badger
// credential store, writing the metrics textfile) run exactly once in
// reverse registration order.
package shutdown
