package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Typed(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("llm.model", "deepseek"))
	require.NoError(t, store.Set("retrieval.k", 5))
	require.NoError(t, store.Set("retrieval.k64", int64(7)))
	require.NoError(t, store.Set("retrieval.tau_top1", 0.5))
	require.NoError(t, store.Set("server.cors_origins", []any{"a", 1, "b"}))
	require.NoError(t, store.Set("debug", true))

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "deepseek", store.GetString("llm.model"))
		assert.Empty(t, store.GetString("retrieval.k"))
		assert.Empty(t, store.GetString("missing"))
	})

	t.Run("int", func(t *testing.T) {
		assert.Equal(t, 5, store.GetInt("retrieval.k"))
		assert.Equal(t, 7, store.GetInt("retrieval.k64"))
		assert.Equal(t, 0, store.GetInt("retrieval.tau_top1"))
		assert.Equal(t, 0, store.GetInt("llm.model"))
	})

	t.Run("float", func(t *testing.T) {
		assert.InDelta(t, 0.5, store.GetFloat("retrieval.tau_top1"), 1e-9)
		assert.InDelta(t, 5.0, store.GetFloat("retrieval.k"), 1e-9)
		assert.Zero(t, store.GetFloat("llm.model"))
	})

	t.Run("bool", func(t *testing.T) {
		assert.True(t, store.GetBool("debug"))
		assert.False(t, store.GetBool("llm.model"))
	})

	t.Run("string slice", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("server.cors_origins"))
		assert.Nil(t, store.GetStringSlice("llm.model"))
	})

	t.Run("keys", func(t *testing.T) {
		assert.Len(t, store.Keys(), 6)
	})
}

func TestConfigStore_NoOps(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key.%d", i)
			_ = store.Set(key, i)
			_ = store.GetInt(key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("key.%d", i)))
	}
}
