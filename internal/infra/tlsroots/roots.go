package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// ErrNoCertsFound is returned when a PEM bundle holds no certificate.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

// Config selects the trust anchors for the API connection.
type Config struct {
	// CAFile is an optional PEM bundle added to the system roots.
	CAFile string `koanf:"ca_file" yaml:"ca_file,omitempty"`
	// InsecureSkipVerify disables verification. Development only.
	InsecureSkipVerify bool `koanf:"insecure_skip_verify" yaml:"insecure_skip_verify,omitempty"`
}

// Pool is a set of trusted root certificates.
type Pool struct {
	certs *x509.CertPool
}

// NewPool starts from the system roots, or from an empty pool where the
// platform has none.
func NewPool() *Pool {
	certs, err := x509.SystemCertPool()
	if err != nil {
		certs = x509.NewCertPool()
	}
	return &Pool{certs: certs}
}

// AddFile adds every certificate in the PEM file at path.
func (p *Pool) AddFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read %s: %w", path, err)
	}
	return p.AddPEM(data)
}

// AddPEM adds every CERTIFICATE block in data. Other block types are
// skipped.
func (p *Pool) AddPEM(data []byte) error {
	added := 0
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certs.AddCert(cert)
		added++
	}
	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// CertPool returns the underlying pool.
func (p *Pool) CertPool() *x509.CertPool {
	return p.certs
}

// ClientConfig returns the *tls.Config for cfg.
func ClientConfig(cfg Config) (*tls.Config, error) {
	pool := NewPool()
	if cfg.CAFile != "" {
		if err := pool.AddFile(cfg.CAFile); err != nil {
			return nil, err
		}
	}
	return &tls.Config{
		RootCAs:            pool.CertPool(),
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for local development
	}, nil
}

// Transport returns a clone of http.DefaultTransport using cfg.
func Transport(cfg Config) (*http.Transport, error) {
	tc, err := ClientConfig(cfg)
	if err != nil {
		return nil, err
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = tc
	return t, nil
}
