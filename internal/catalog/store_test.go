// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package catalog_test

import (
	"sync"
	"testing"

	"github.com/openclaw/clawroute/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T, roles map[string]catalog.Chain) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(testProviders(), roles, nil, "", testPolicy())
	require.NoError(t, err)
	return cat
}

func TestStoreCurrentReturnsSeed(t *testing.T) {
	cat := newTestCatalog(t, map[string]catalog.Chain{"worker": workerChain()})
	store := catalog.NewStore(cat)
	assert.Same(t, cat, store.Current())
}

func TestStoreSwapPublishesNewSnapshot(t *testing.T) {
	first := newTestCatalog(t, map[string]catalog.Chain{"worker": workerChain()})
	second := newTestCatalog(t, map[string]catalog.Chain{
		"worker": workerChain(),
		"ace":    {{Provider: "anthropic", Model: "claude-sonnet-4-5"}},
	})

	store := catalog.NewStore(first)
	prev := store.Swap(second)

	assert.Same(t, first, prev)
	assert.Same(t, second, store.Current())
}

func TestStoreSnapshotStableAcrossSwap(t *testing.T) {
	first := newTestCatalog(t, map[string]catalog.Chain{"worker": workerChain()})
	second := newTestCatalog(t, map[string]catalog.Chain{
		"ace": {{Provider: "anthropic", Model: "claude-sonnet-4-5"}},
	})

	store := catalog.NewStore(first)
	snapshot := store.Current()
	store.Swap(second)

	// An in-flight resolution keeps seeing the snapshot it started with.
	lookup, err := snapshot.ChainFor("worker")
	require.NoError(t, err)
	assert.Len(t, lookup.Chain, 3)

	_, err = store.Current().ChainFor("worker")
	require.Error(t, err)
}

func TestStoreConcurrentReadersAndSwaps(t *testing.T) {
	cat := newTestCatalog(t, map[string]catalog.Chain{"worker": workerChain()})
	store := catalog.NewStore(cat)

	replacement := newTestCatalog(t, map[string]catalog.Chain{"worker": workerChain()})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got := store.Current()
				assert.NotNil(t, got)
				_, _ = got.ChainFor("worker")
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Swap(replacement)
			}
		}()
	}
	wg.Wait()
}
