package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/yndnr/fintrack-go/internal/apitest"
	"github.com/yndnr/fintrack-go/internal/cli/connection"
	"github.com/yndnr/fintrack-go/internal/storage"
)

type testEnv struct {
	api     *apitest.Server
	store   *storage.MemoryStore
	client  *connection.Client
	expired atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{api: apitest.New(), store: storage.NewMemoryStore()}
	t.Cleanup(env.api.Close)

	client, err := connection.New(connection.Options{
		BaseURL: env.api.BaseURL(),
		Store:   env.store,
		OnSessionExpired: func(context.Context, string) {
			env.expired.Add(1)
		},
	})
	if err != nil {
		t.Fatalf("connection.New() error = %v", err)
	}
	env.client = client
	return env
}

// login stores a valid token for email.
func (e *testEnv) login(t *testing.T, email string) {
	t.Helper()
	if err := e.store.Set(connection.TokenKey, e.api.IssueToken(email)); err != nil {
		t.Fatal(err)
	}
}
