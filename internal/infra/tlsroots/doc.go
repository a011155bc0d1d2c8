// Package tlsroots builds the TLS client configuration used when the
// finance API is served over https.
//
// The trust store is the system pool plus any certificates from a PEM
// bundle, which covers self-hosted deployments behind a private CA.
package tlsroots
