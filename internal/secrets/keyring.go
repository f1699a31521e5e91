// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/zalando/go-keyring"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// indexSuffix forms the key under which the JSON list of stored key
// names lives. go-keyring has no native enumeration, so Keys() reads
// this index instead.
const indexSuffix = "::keys"

// Keyring implements Store on the OS keyring: Keychain on macOS,
// secret-service over D-Bus on Linux, Credential Manager on Windows.
type Keyring struct{}

var _ Store = Keyring{}

func NewKeyring() Keyring { return Keyring{} }

func (k Keyring) Set(service, key, value string) error {
	if err := checkArgs(service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return clawerr.Wrapf(err, clawerr.CodeSecretStoreFailure, "storing %s/%s", service, key)
	}

	keys, err := k.readIndex(service)
	if err != nil {
		return err
	}
	for _, existing := range keys {
		if existing == key {
			return nil
		}
	}
	return k.writeIndex(service, append(keys, key))
}

func (k Keyring) Get(service, key string) (string, error) {
	if err := checkArgs(service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", clawerr.Errorf(clawerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return "", clawerr.Wrapf(err, clawerr.CodeSecretStoreFailure, "retrieving %s/%s", service, key)
	}
	return val, nil
}

func (k Keyring) Delete(service, key string) error {
	if err := checkArgs(service, key); err != nil {
		return err
	}
	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return clawerr.Errorf(clawerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return clawerr.Wrapf(err, clawerr.CodeSecretStoreFailure, "deleting %s/%s", service, key)
	}

	keys, err := k.readIndex(service)
	if err != nil {
		return err
	}
	kept := keys[:0]
	for _, existing := range keys {
		if existing != key {
			kept = append(kept, existing)
		}
	}
	return k.writeIndex(service, kept)
}

func (k Keyring) Keys(service string) ([]string, error) {
	return k.readIndex(service)
}

func checkArgs(service, key string) error {
	if service == "" {
		return clawerr.New(clawerr.CodeSecretInvalidInput, "service must not be empty")
	}
	if key == "" {
		return clawerr.New(clawerr.CodeSecretInvalidInput, "key must not be empty")
	}
	return nil
}

func (k Keyring) readIndex(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+indexSuffix)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, clawerr.Wrapf(err, clawerr.CodeSecretStoreFailure, "loading key index for %s", service)
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, clawerr.Wrapf(err, clawerr.CodeSecretStoreFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

func (k Keyring) writeIndex(service string, keys []string) error {
	indexKey := service + indexSuffix
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("could not remove empty key index", "service", service, "error", err)
		}
		return nil
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return clawerr.Wrapf(err, clawerr.CodeSecretStoreFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return clawerr.Wrapf(err, clawerr.CodeSecretStoreFailure, "saving key index for %s", service)
	}
	return nil
}
