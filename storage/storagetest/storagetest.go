// Package storagetest holds the behavioral suite every storage.Storage
// backend must pass.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexlup06-authgate/walletgate/storage"
)

// Run exercises s. Keys are namespaced with a random prefix so the suite can
// share a database with other runs.
func Run(t *testing.T, s storage.Storage) {
	t.Helper()

	ctx := context.Background()
	s = storage.Prefixed(s, "storagetest:"+uuid.NewString()+":")

	t.Run("GetMissing", func(t *testing.T) {
		v, ok, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k", "one", 0))
		require.NoError(t, s.Set(ctx, "k", "two", 0))

		v, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "two", v)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "d", "x", 0))
		require.NoError(t, s.Delete(ctx, "d"))
		require.NoError(t, s.Delete(ctx, "d"))

		_, ok, err := s.Get(ctx, "d")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("TakeIsReadOnce", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "once", "/wallet", time.Minute))

		v, ok, err := s.Take(ctx, "once")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "/wallet", v)

		v, ok, err = s.Take(ctx, "once")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("ConcurrentTakeYieldsOneWinner", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "race", "v", time.Minute))

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok, err := s.Take(ctx, "race"); err == nil && ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
	})
}
