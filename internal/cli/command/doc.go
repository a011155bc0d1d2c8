// Package command provides the CLI command definitions for fintrack-cli.
//
// Commands are defined with urfave/cli/v2:
//
//   - root.go: App, global flags and the per-invocation runtime
//   - auth.go: login, register, logout, status
//   - dashboard.go: dashboard and analytics views
//   - tx.go: transaction add, edit, delete and import
//   - export.go: local SQLite snapshots
//   - config.go: config show, path and init
//   - shell.go: interactive mode
//
// Actions parse flags, call a service from internal/core/service and
// hand the result to an output.Formatter.
package command
