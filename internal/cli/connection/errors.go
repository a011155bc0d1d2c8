package connection

import (
	"errors"
	"fmt"
)

// DefaultAuthMessage is used when a rejected authentication response
// carries no message.
const DefaultAuthMessage = "Authentication failed"

// ErrSessionExpired matches every *SessionExpiredError with errors.Is.
var ErrSessionExpired = errors.New("session expired")

// AuthenticationError reports a non-2xx response from the auth endpoint.
type AuthenticationError struct {
	Status  int
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// SessionExpiredError reports a 401 on a protected request. By the time
// it is returned the token has been cleared and the session-expired
// callback has run.
type SessionExpiredError struct {
	// Path is the request path that was rejected.
	Path string
	// LoginPath is where the user was sent to sign in again.
	LoginPath string
	// Err is a failure to clear the stored token, if any.
	Err error
}

func (e *SessionExpiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session expired (clear token: %v)", e.Err)
	}
	return "session expired"
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Err
}

func (e *SessionExpiredError) Is(target error) bool {
	return target == ErrSessionExpired
}

// APIError is a non-2xx response decoded by ParseResponse.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
