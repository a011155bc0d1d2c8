// Package confloader loads layered configuration with koanf.
//
// Sources are merged lowest to highest priority:
//
//  1. defaults supplied by the caller
//  2. the YAML config file (skipped when it does not exist)
//  3. environment variables with the FINTRACK_ prefix
//  4. explicit overrides, typically command-line flags
//
// Environment keys use a double underscore for nesting so that single
// underscores can remain inside key names:
//
//	FINTRACK_LOGIN_PATH=/signin          -> login_path
//	FINTRACK_CREDENTIALS__BACKEND=badger -> credentials.backend
//
// Watcher reports changes to the config file so an interactive session
// can reload without restarting.
package confloader
