// Package config defines the fintrack-cli configuration and how it is
// loaded: built-in defaults, then ~/.fintrack/config.yaml, then
// FINTRACK_* environment variables (a .env file in the working
// directory is read first), then command-line flags.
package config
