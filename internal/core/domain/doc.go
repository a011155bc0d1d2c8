// Package domain defines the finance models exchanged with the remote API.
//
// Models are plain values with no IO. This package contains:
//
//   - Transaction: an income or expense entry
//   - Money: amounts held as integer cents
//   - Summary and Analytics: dashboard and aggregate views
//   - LoginCredentials and Registration: payloads for POST /auth
//   - Errors: validation errors with stable codes
package domain
