// Package tokenstore provides the bearer token cache used by the API client.
//
// A store holds at most one token. Backends trade durability against deployment:
//   - Memory: process-local slot, lost on exit
//   - File: local filesystem storage with atomic writes and secure permissions
//   - Env: read-only environment variable access (requires external secret management)
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//
// File and keyring stores are scoped to the API origin so tokens issued by one
// deployment are never sent to another.
package tokenstore
