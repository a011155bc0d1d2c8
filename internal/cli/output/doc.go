// Package output renders command results for fintrack-cli.
//
// Results are written as aligned tables (the default), JSON or YAML.
// Table output understands Tabler values, which lay themselves out as
// one or more titled tables; anything else is rendered by reflection.
// Spinner and ProgressBar report progress on stderr for long commands.
package output
