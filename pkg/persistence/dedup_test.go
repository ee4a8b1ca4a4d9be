package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDedupStore_ClaimOnce(t *testing.T) {
	store := NewMemoryDedupStore()
	ctx := context.Background()

	first, err := store.Claim(ctx, "evt-1", "wf-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.Claim(ctx, "evt-1", "wf-1")
	require.NoError(t, err)
	assert.False(t, second)
}

func TestMemoryDedupStore_DistinctPairs(t *testing.T) {
	store := NewMemoryDedupStore()
	ctx := context.Background()

	claimed, err := store.Claim(ctx, "evt-1", "wf-1")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.Claim(ctx, "evt-1", "wf-2")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.Claim(ctx, "evt-2", "wf-1")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMemoryDedupStore_ConcurrentClaims(t *testing.T) {
	store := NewMemoryDedupStore()
	ctx := context.Background()

	const goroutines = 50

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			claimed, err := store.Claim(ctx, "evt-race", "wf-1")
			assert.NoError(t, err)

			if claimed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, wins)
}
