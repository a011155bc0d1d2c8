package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/yndnr/fintrack-go/internal/cli/connection"
	"github.com/yndnr/fintrack-go/internal/infra/tlsroots"
	"github.com/yndnr/fintrack-go/internal/storage"
	"github.com/yndnr/fintrack-go/internal/telemetry/logger"
)

// DirName is the per-user directory under $HOME.
const DirName = ".fintrack"

// CLIConfig is the configuration for fintrack-cli.
type CLIConfig struct {
	Server    string `koanf:"server" yaml:"server"`
	LoginPath string `koanf:"login_path" yaml:"login_path"`
	Output    string `koanf:"output" yaml:"output"` // table, json, yaml
	// Timeout bounds each command's API calls.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`

	Credentials storage.Config  `koanf:"credentials" yaml:"credentials"`
	TLS         tlsroots.Config `koanf:"tls" yaml:"tls"`
	Log         logger.Config   `koanf:"log" yaml:"log"`
	Metrics     MetricsConfig   `koanf:"metrics" yaml:"metrics"`
	Import      ImportConfig    `koanf:"import" yaml:"import"`
	Archive     ArchiveConfig   `koanf:"archive" yaml:"archive"`
}

// MetricsConfig controls the Prometheus textfile written at exit.
type MetricsConfig struct {
	Textfile string `koanf:"textfile" yaml:"textfile,omitempty"`
}

// ImportConfig holds defaults for "tx import".
type ImportConfig struct {
	Concurrency int     `koanf:"concurrency" yaml:"concurrency"`
	Rate        float64 `koanf:"rate" yaml:"rate"`
	Burst       int     `koanf:"burst" yaml:"burst"`
}

// ArchiveConfig locates the local snapshot database.
type ArchiveConfig struct {
	Path string `koanf:"path" yaml:"path,omitempty"`
}

// Default returns the built-in configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:    connection.DefaultBaseURL,
		LoginPath: connection.DefaultLoginPath,
		Output:    "table",
		Timeout:   30 * time.Second,
		Credentials: storage.Config{
			Backend: storage.BackendFile,
		},
		Log: logger.Config{Level: "warn", Format: "text"},
		Import: ImportConfig{
			Concurrency: 4,
			Rate:        10,
			Burst:       1,
		},
	}
}

// Dir returns ~/.fintrack, or .fintrack when the home directory is
// unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultConfigPath returns ~/.fintrack/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultHistoryPath returns the shell history file.
func DefaultHistoryPath() string {
	return filepath.Join(Dir(), "history")
}

// CredentialsPath returns the configured path for the credential
// backend, or its default location.
func (c *CLIConfig) CredentialsPath() string {
	if c.Credentials.Path != "" {
		return c.Credentials.Path
	}
	switch c.Credentials.Backend {
	case storage.BackendBadger:
		return filepath.Join(Dir(), "credstore")
	default:
		return filepath.Join(Dir(), "credentials.yaml")
	}
}

// ArchivePath returns the snapshot database path.
func (c *CLIConfig) ArchivePath() string {
	if c.Archive.Path != "" {
		return c.Archive.Path
	}
	return filepath.Join(Dir(), "archive.db")
}

// StoreConfig returns the credential config with the path resolved.
func (c *CLIConfig) StoreConfig() storage.Config {
	sc := c.Credentials
	if sc.Backend == "" {
		sc.Backend = storage.BackendFile
	}
	if sc.Backend == storage.BackendMemory {
		sc.Path = ""
	} else {
		sc.Path = c.CredentialsPath()
	}
	return sc
}

// Passphrase returns the sealing passphrase from the configured
// environment variable, or nil when sealing is off.
func (c *CLIConfig) Passphrase() []byte {
	if c.Credentials.PassphraseEnv == "" {
		return nil
	}
	if v := os.Getenv(c.Credentials.PassphraseEnv); v != "" {
		return []byte(v)
	}
	return nil
}

var (
	validOutputs   = []string{"table", "json", "yaml"}
	validBackends  = []string{storage.BackendMemory, storage.BackendFile, storage.BackendBadger}
	validCiphers   = []string{"", string(storage.CipherAESGCM), string(storage.CipherChaCha20)}
	validLogLevels = []string{"debug", "info", "warn", "warning", "error"}
)

// Validate reports every problem at once.
func (c *CLIConfig) Validate() error {
	var problems []string

	if c.Server == "" {
		problems = append(problems, "server cannot be empty")
	} else {
		raw := c.Server
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		if u, err := url.Parse(raw); err != nil {
			problems = append(problems, fmt.Sprintf("invalid server URL '%s': %v", c.Server, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			problems = append(problems, fmt.Sprintf("invalid server URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		problems = append(problems, fmt.Sprintf("invalid login_path '%s': must start with '/'", c.LoginPath))
	}
	if !slices.Contains(validOutputs, c.Output) {
		problems = append(problems, fmt.Sprintf("invalid output '%s': must be one of %v", c.Output, validOutputs))
	}
	if c.Timeout < 0 {
		problems = append(problems, fmt.Sprintf("invalid timeout %s: must not be negative", c.Timeout))
	}
	if !slices.Contains(validBackends, c.Credentials.Backend) {
		problems = append(problems, fmt.Sprintf("invalid credentials backend '%s': must be one of %v", c.Credentials.Backend, validBackends))
	}
	if !slices.Contains(validCiphers, c.Credentials.Cipher) {
		problems = append(problems, fmt.Sprintf("invalid credentials cipher '%s': must be one of %v", c.Credentials.Cipher, validCiphers[1:]))
	}
	if c.Credentials.PassphraseEnv != "" && c.Credentials.Backend == storage.BackendMemory {
		problems = append(problems, "credentials passphrase_env has no effect with the memory backend")
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be one of %v", c.Log.Level, validLogLevels))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.Log.Format))
	}
	if c.Import.Concurrency < 1 {
		problems = append(problems, fmt.Sprintf("invalid import concurrency %d: must be at least 1", c.Import.Concurrency))
	}
	if c.Import.Rate < 0 {
		problems = append(problems, fmt.Sprintf("invalid import rate %g: must not be negative", c.Import.Rate))
	}
	if c.TLS.CAFile != "" {
		if _, err := os.Stat(c.TLS.CAFile); err != nil {
			problems = append(problems, fmt.Sprintf("tls ca_file '%s': %v", c.TLS.CAFile, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
