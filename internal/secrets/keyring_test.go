// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/openclaw/clawroute/internal/secrets"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

func newMockKeyring(t *testing.T) secrets.Keyring {
	t.Helper()
	keyring.MockInit()
	return secrets.NewKeyring()
}

func TestKeyringRoundTrip(t *testing.T) {
	kr := newMockKeyring(t)

	require.NoError(t, kr.Set("clawroute-test", "anthropic-api-key", "sk-ant-123"))

	got, err := kr.Get("clawroute-test", "anthropic-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-123", got)

	keys, err := kr.Keys("clawroute-test")
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic-api-key"}, keys)

	require.NoError(t, kr.Delete("clawroute-test", "anthropic-api-key"))

	_, err = kr.Get("clawroute-test", "anthropic-api-key")
	assert.Equal(t, clawerr.CodeSecretNotFound, clawerr.CodeOf(err))

	keys, err = kr.Keys("clawroute-test")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyringEmptyArgs(t *testing.T) {
	kr := newMockKeyring(t)

	assert.Error(t, kr.Set("", "key", "v"))
	assert.Error(t, kr.Set("service", "", "v"))

	_, err := kr.Get("", "key")
	assert.Equal(t, clawerr.CodeSecretInvalidInput, clawerr.CodeOf(err))

	assert.Error(t, kr.Delete("service", ""))
}

func TestKeyringDeleteMissing(t *testing.T) {
	kr := newMockKeyring(t)

	err := kr.Delete("clawroute-test", "never-stored")
	assert.Equal(t, clawerr.CodeSecretNotFound, clawerr.CodeOf(err))
}

func TestKeyringSetIsIdempotentInIndex(t *testing.T) {
	kr := newMockKeyring(t)

	require.NoError(t, kr.Set("clawroute-test", "k", "v1"))
	require.NoError(t, kr.Set("clawroute-test", "k", "v2"))

	keys, err := kr.Keys("clawroute-test")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	got, err := kr.Get("clawroute-test", "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}
