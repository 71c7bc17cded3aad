// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

// Package secrets keeps API keys out of config files. Values live in the
// OS keyring and config refers to them as keyring://service/key references
// resolved after the file is read.
package secrets

// Store reads and writes named secrets grouped by service. KeyringStore is
// the production implementation; command tests swap in a mock.
type Store interface {
	// Store saves a secret value under the given service and key.
	Store(service, key, value string) error

	// Retrieve fetches the secret value for the given service and key.
	// Returns CodeSecretNotFound (via semerr.HasCode) if the key does not exist.
	Retrieve(service, key string) (string, error)

	// Delete removes the secret for the given service and key.
	// Returns CodeSecretNotFound (via semerr.HasCode) if the key does not exist.
	Delete(service, key string) error

	// List returns all key names stored under the given service.
	List(service string) ([]string, error)
}
