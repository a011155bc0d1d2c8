package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/fintrack-go/internal/infra/confloader"
)

// LoadOptions selects the sources merged by Load.
type LoadOptions struct {
	// Path is the YAML file; DefaultConfigPath when empty.
	Path string
	// EnvFile is a dotenv file loaded into the environment first.
	// Missing files are ignored. Empty means ".env".
	EnvFile string
	// Overrides are flag values keyed by dotted path, e.g.
	// "credentials.backend". Empty strings are ignored.
	Overrides map[string]any
}

// Load merges defaults, the config file, the environment and overrides.
// The result is not validated.
func Load(opts LoadOptions) (*CLIConfig, error) {
	if opts.Path == "" {
		opts.Path = DefaultConfigPath()
	}
	if opts.EnvFile == "" {
		opts.EnvFile = ".env"
	}
	if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", opts.EnvFile, err)
	}

	loader := confloader.NewLoader(
		confloader.WithConfigFile(opts.Path),
		confloader.WithDefaults(defaults()),
		confloader.WithOverrides(opts.Overrides),
	)
	cfg := &CLIConfig{}
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults flattens Default() into dotted keys for the loader.
func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"server":              d.Server,
		"login_path":          d.LoginPath,
		"output":              d.Output,
		"timeout":             d.Timeout.String(),
		"credentials.backend": d.Credentials.Backend,
		"log.level":           d.Log.Level,
		"log.format":          d.Log.Format,
		"import.concurrency":  d.Import.Concurrency,
		"import.rate":         d.Import.Rate,
		"import.burst":        d.Import.Burst,
	}
}

// Save writes cfg as YAML with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
