// Package storage provides credential stores for the session token.
//
// Every store implements the same three operations (Get, Set, Clear)
// and can back the API client:
//
//   - MemoryStore: process-local, used by tests and --store memory
//   - FileStore: a 0600 YAML file under ~/.fintrack, the default
//   - BadgerStore: an embedded badger database; only one process can
//     hold it open at a time
//
// SealedStore wraps any of them and encrypts values at rest with a key
// derived from a passphrase (argon2id), using AES-GCM or
// ChaCha20-Poly1305.
package storage
