// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

// Package secrets stores provider credentials outside the config file.
// Config values may reference a stored credential with a
// keyring://service/key URI; the loader resolves those to opaque
// strings before the rest of the process sees them.
package secrets

// Store is a secure credential store. The shipped implementation uses
// the OS keyring; tests substitute an in-memory one.
type Store interface {
	// Set saves a credential under service/key.
	Set(service, key, value string) error

	// Get fetches the credential for service/key. A missing key yields
	// CodeSecretNotFound.
	Get(service, key string) (string, error)

	// Delete removes the credential for service/key. A missing key
	// yields CodeSecretNotFound.
	Delete(service, key string) error

	// Keys returns the key names stored under service.
	Keys(service string) ([]string, error)
}
