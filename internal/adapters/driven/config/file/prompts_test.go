package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
)

func TestNewPromptStore_Paths(t *testing.T) {
	dir := t.TempDir()

	t.Run("directory", func(t *testing.T) {
		store, err := NewPromptStore(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, PromptsFileName), store.Path())
	})

	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(dir, "custom.yml")
		store, err := NewPromptStore(path)
		require.NoError(t, err)
		assert.Equal(t, path, store.Path())
	})

	t.Run("constructor does no io", func(t *testing.T) {
		sub := filepath.Join(dir, "lazy")
		_, err := NewPromptStore(sub)
		require.NoError(t, err)
		_, err = os.Stat(sub)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestPromptStore_SeedsDefaults(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir, WithDefaultPrompts(map[string]string{
		driven.PromptGrade: "Is {context} relevant to {question}?",
	}))
	require.NoError(t, err)

	tpl, err := store.Load(driven.PromptGrade)
	require.NoError(t, err)
	assert.Equal(t, "Is {context} relevant to {question}?", tpl)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "grade:")
}

func TestPromptStore_ReadsCustomFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, PromptsFileName)
	content := "chat_system: |\n  Be brief.\nvlm_user: \"Describe it.\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	store, err := NewPromptStore(dir, WithDefaultPrompts(map[string]string{
		driven.PromptChatSystem: "default",
	}))
	require.NoError(t, err)

	tpl, err := store.Load(driven.PromptChatSystem)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", tpl)

	tpl, err = store.Load(driven.PromptVLMUser)
	require.NoError(t, err)
	assert.Equal(t, "Describe it.", tpl)
}

func TestPromptStore_MissingName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PromptsFileName), []byte("grade: \"\"\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptAnswerNoContext)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Load(driven.PromptGrade)
	assert.ErrorIs(t, err, domain.ErrNotFound, "blank templates count as missing")
}

func TestPromptStore_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PromptsFileName), []byte("grade: [unclosed\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptGrade)
	assert.Error(t, err)
}

func TestPromptStore_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, PromptsFileName)
	require.NoError(t, os.WriteFile(path, []byte("grade: first\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	tpl, err := store.Load(driven.PromptGrade)
	require.NoError(t, err)
	assert.Equal(t, "first", tpl)

	require.NoError(t, os.WriteFile(path, []byte("grade: second\n"), 0600))

	tpl, err = store.Load(driven.PromptGrade)
	require.NoError(t, err)
	assert.Equal(t, "first", tpl, "cached until reload")

	store.Reload()
	tpl, err = store.Load(driven.PromptGrade)
	require.NoError(t, err)
	assert.Equal(t, "second", tpl)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir, WithDefaultPrompts(map[string]string{
		driven.PromptGrade: "g",
	}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tpl, err := store.Load(driven.PromptGrade)
			assert.NoError(t, err)
			assert.Equal(t, "g", tpl)
		}()
	}
	wg.Wait()
}
