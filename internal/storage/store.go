package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported backend.
	ErrUnknownBackend = errors.New("storage: unknown credential backend")
	// ErrDecrypt means a sealed value could not be opened, usually
	// because the passphrase changed.
	ErrDecrypt = errors.New("storage: cannot decrypt stored credential")
)

// Store is a string key-value store for credentials. Clear of an
// absent key succeeds.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Clear(key string) error
}

// Config selects and configures the credential backend.
type Config struct {
	Backend string `koanf:"backend" yaml:"backend"`
	// Path is the YAML file for the file backend or the directory for
	// the badger backend.
	Path string `koanf:"path" yaml:"path"`
	// PassphraseEnv names the environment variable holding the sealing
	// passphrase. Values are stored in plain text when it is unset.
	PassphraseEnv string `koanf:"passphrase_env" yaml:"passphrase_env,omitempty"`
	// Cipher forces aes-gcm or chacha20-poly1305 for new values.
	Cipher string `koanf:"cipher" yaml:"cipher,omitempty"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the configured store. A non-empty passphrase wraps it in
// a SealedStore. The returned closer must be called on exit.
func Open(cfg Config, passphrase []byte, log *slog.Logger) (Store, io.Closer, error) {
	var (
		s      Store
		closer io.Closer = nopCloser{}
	)

	switch cfg.Backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendFile, "":
		if cfg.Path == "" {
			return nil, nil, fmt.Errorf("storage: file backend needs a path")
		}
		s = NewFileStore(cfg.Path)
	case BackendBadger:
		if cfg.Path == "" {
			return nil, nil, fmt.Errorf("storage: badger backend needs a directory")
		}
		bs, err := OpenBadgerStore(cfg.Path, log)
		if err != nil {
			return nil, nil, err
		}
		s, closer = bs, bs
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	if len(passphrase) == 0 {
		return s, closer, nil
	}
	sealed, err := NewSealedStore(s, passphrase, CipherType(cfg.Cipher))
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return sealed, closer, nil
}
