// Package credential persists the single opaque bearer credential.
//
// A Store owns one (service, account) key in a durable Backend and keeps the
// last value in memory so repeated reads skip the backend. Writes replace,
// never append: Save deletes any existing entry before writing the new one.
//
// Backends:
//   - KeyringBackend: OS keychain / secret service
//   - FileBackend: 0600 files for headless hosts
//   - MemoryBackend: tests and ephemeral processes
package credential
