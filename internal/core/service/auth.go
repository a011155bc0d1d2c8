package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yndnr/fintrack-go/internal/cli/connection"
	"github.com/yndnr/fintrack-go/internal/core/domain"
)

// ErrNoToken is returned when the API accepted the credentials but did
// not issue a token.
var ErrNoToken = errors.New("authentication response has no token")

// Authenticator is the part of the API client AuthService needs.
type Authenticator interface {
	Authenticate(ctx context.Context, credentials any) (connection.AuthResult, error)
}

// AuthService owns the session token: it stores the token after a
// successful authentication and removes it on logout.
type AuthService struct {
	client Authenticator
	store  connection.CredentialStore
}

func NewAuthService(client Authenticator, store connection.CredentialStore) *AuthService {
	return &AuthService{client: client, store: store}
}

// Login authenticates and persists the issued token.
func (s *AuthService) Login(ctx context.Context, creds domain.LoginCredentials) (connection.AuthResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, creds)
}

// Register creates an account and persists the issued token.
func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (connection.AuthResult, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, reg)
}

func (s *AuthService) authenticate(ctx context.Context, payload any) (connection.AuthResult, error) {
	res, err := s.client.Authenticate(ctx, payload)
	if err != nil {
		return nil, err
	}
	token := res.Token()
	if token == "" {
		return nil, ErrNoToken
	}
	if err := s.store.Set(connection.TokenKey, token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return res, nil
}

// Logout forgets the stored token. It does not contact the API.
func (s *AuthService) Logout() error {
	if err := s.store.Clear(connection.TokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Status describes the local session.
type Status struct {
	Authenticated bool `json:"authenticated" yaml:"authenticated"`
}

// Status reports whether a token is stored. It does not check the token
// against the API; an expired token shows up as a session expiry on the
// next request.
func (s *AuthService) Status() (Status, error) {
	token, ok, err := s.store.Get(connection.TokenKey)
	if err != nil {
		return Status{}, fmt.Errorf("read token: %w", err)
	}
	return Status{Authenticated: ok && token != ""}, nil
}
