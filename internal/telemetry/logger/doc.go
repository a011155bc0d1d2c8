// Package logger provides structured logging for fintrack-cli.
//
// The logger wraps log/slog and adds:
//
//   - JSON and text output on stderr
//   - a process-wide level that can be raised with --verbose
//   - request ID propagation through context.Context
//   - redaction of passwords, bearer credentials and session tokens
//
// Session tokens issued by the finance API are JWTs in practice, so any
// string value that looks like one is masked even under an innocent key.
package logger
