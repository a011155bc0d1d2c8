package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Server    string `koanf:"server"`
	LoginPath string `koanf:"login_path"`
	Store     struct {
		Backend string `koanf:"backend"`
		Path    string `koanf:"path"`
	} `koanf:"credentials"`
	Import struct {
		Concurrency int `koanf:"concurrency"`
	} `koanf:"import"`
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"FINTRACK_SERVER", "server"},
		{"FINTRACK_LOGIN_PATH", "login_path"},
		{"FINTRACK_CREDENTIALS__BACKEND", "credentials.backend"},
		{"FINTRACK_CREDENTIALS__PASSPHRASE_ENV", "credentials.passphrase_env"},
	}
	for _, tt := range tests {
		if got := EnvKey(DefaultEnvPrefix, tt.in); got != tt.want {
			t.Errorf("EnvKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoader_Priority(t *testing.T) {
	path := writeFile(t, `
server: http://file:5000/api
login_path: /file-login
credentials:
  backend: badger
  path: /tmp/file-creds
import:
  concurrency: 8
`)
	t.Setenv("FINTRACK_LOGIN_PATH", "/env-login")
	t.Setenv("FINTRACK_CREDENTIALS__PATH", "/tmp/env-creds")

	l := NewLoader(
		WithConfigFile(path),
		WithDefaults(map[string]any{
			"server":              "http://localhost:5000/api",
			"credentials.backend": "file",
			"import.concurrency":  4,
		}),
		WithOverrides(map[string]any{
			"server":              "http://flag:5000/api",
			"credentials.backend": "",
		}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	checks := []struct {
		name, got, want string
	}{
		{"server (flag)", cfg.Server, "http://flag:5000/api"},
		{"login_path (env)", cfg.LoginPath, "/env-login"},
		{"credentials.backend (file, empty flag ignored)", cfg.Store.Backend, "badger"},
		{"credentials.path (env)", cfg.Store.Path, "/tmp/env-creds"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
	if cfg.Import.Concurrency != 8 {
		t.Errorf("import.concurrency = %d, want 8", cfg.Import.Concurrency)
	}
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	l := NewLoader(
		WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")),
		WithDefaults(map[string]any{"server": "http://localhost:5000/api"}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server != "http://localhost:5000/api" {
		t.Errorf("server = %q, want default", cfg.Server)
	}
}

func TestLoader_InvalidYAML(t *testing.T) {
	l := NewLoader(WithConfigFile(writeFile(t, "server: [unterminated")))

	var cfg testConfig
	if err := l.Load(&cfg); err == nil {
		t.Error("Load() with invalid YAML should fail")
	}
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("FT_SERVER", "http://custom/api")

	l := NewLoader(WithEnvPrefix("FT_"))
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server != "http://custom/api" {
		t.Errorf("server = %q, want %q", cfg.Server, "http://custom/api")
	}
	if l.String("server") != "http://custom/api" {
		t.Errorf("String(server) = %q", l.String("server"))
	}
}
