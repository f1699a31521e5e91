// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package secrets

import (
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI splits a keyring://service/key URI.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", clawerr.Errorf(clawerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, keyringScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", clawerr.Errorf(clawerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return parts[0], parts[1], nil
}

// Resolve replaces a keyring:// URI with the stored credential. Any
// other value passes through unchanged.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}
	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(service, key)
	if err != nil {
		return "", clawerr.Wrapf(err, clawerr.CodeSecretResolveFailure, "resolving %q", value)
	}
	return secret, nil
}

// ResolveViperSecrets walks every key in v and resolves string values
// using the keyring:// scheme. Failures are logged and the URI is left
// in place so the error surfaces where the value is actually used.
func ResolveViperSecrets(v *viper.Viper, store Store) {
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}
		resolved, err := Resolve(store, val)
		if err != nil {
			slog.Warn("keeping unresolved keyring URI", "config_key", key, "error", err)
			continue
		}
		v.Set(key, resolved)
	}
}
