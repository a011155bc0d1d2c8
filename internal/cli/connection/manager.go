package connection

import "sync"

// Factory builds a Client from the current configuration.
type Factory func() (*Client, error)

// Manager owns the Client for one CLI invocation or shell session. The
// client is built on first use and rebuilt after Reload, which the
// shell calls when the config file changes.
type Manager struct {
	mu      sync.Mutex
	factory Factory
	client  *Client
}

// NewManager creates a manager around factory.
func NewManager(factory Factory) *Manager {
	return &Manager{factory: factory}
}

// Client returns the current client, building it if needed. A failed
// build is not cached.
func (m *Manager) Client() (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return m.client, nil
	}
	c, err := m.factory()
	if err != nil {
		return nil, err
	}
	m.client = c
	return c, nil
}

// Reload replaces the factory and drops the cached client. Requests
// already running keep the client they started with.
func (m *Manager) Reload(factory Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factory = factory
	m.client = nil
}
