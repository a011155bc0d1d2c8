package connection

// TokenKey is the credential store key holding the session token.
const TokenKey = "token"

// CredentialStore persists the session token.
//
// Implementations must be safe for concurrent use, and Clear on an
// absent key must succeed: two requests that observe a 401 at the same
// time both clear the token.
type CredentialStore interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Clear(key string) error
}
