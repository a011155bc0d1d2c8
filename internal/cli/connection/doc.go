// Package connection is the session-aware client for the finance API.
//
// Every outbound call from fintrack-cli goes through a Client, which
// centralizes bearer-token attachment and session-expiry handling:
//
//   - Authenticate posts credentials to /auth without a bearer header
//     and returns the decoded body. It never stores the token.
//   - Request attaches the stored token, lets caller headers override
//     the defaults, and turns a 401 into a cleared token, a call to the
//     session-expired callback and a *SessionExpiredError. A 401
//     response is never handed back to the caller.
//
// The token lives in an injected CredentialStore and the reaction to an
// expired session is an injected callback, so the client knows nothing
// about where credentials are persisted or how the user is sent back to
// the login step.
package connection
