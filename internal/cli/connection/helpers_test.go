package connection

import (
	"context"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeStore is an in-memory CredentialStore that counts mutations.
type fakeStore struct {
	mu     sync.Mutex
	values map[string]string
	sets   atomic.Int32
	clears atomic.Int32
	getErr error
}

func newFakeStore(token string) *fakeStore {
	s := &fakeStore{values: map[string]string{}}
	if token != "" {
		s.values[TokenKey] = token
	}
	return s
}

func (s *fakeStore) Get(key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *fakeStore) Set(key, value string) error {
	s.sets.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *fakeStore) Clear(key string) error {
	s.clears.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *fakeStore) token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[TokenKey]
	return v, ok
}

// expiryRecorder counts session-expired callbacks.
type expiryRecorder struct {
	calls atomic.Int32
	mu    sync.Mutex
	paths []string
}

func (r *expiryRecorder) callback(_ context.Context, loginPath string) {
	r.calls.Add(1)
	r.mu.Lock()
	r.paths = append(r.paths, loginPath)
	r.mu.Unlock()
}

func newTestClient(t *testing.T, srv *httptest.Server, store CredentialStore, rec *expiryRecorder) *Client {
	t.Helper()
	opts := Options{BaseURL: srv.URL + "/api", Store: store}
	if rec != nil {
		opts.OnSessionExpired = rec.callback
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}
