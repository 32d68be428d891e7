package cli

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

func sampleHits() []domain.ScoredChunk {
	return []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "c1", SourceID: "f_a", SourceName: "a.pdf", Page: 2, Content: "first\n\nchunk   text"}, Score: 0.12},
		{Chunk: domain.Chunk{ID: "c2", SourceID: "f_b", Page: 5, Content: "second"}, Score: 0.3},
	}
}

func TestIndexBuild(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, "", "index", "build", "f_abc12345")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed f_abc12345: 12 chunks")
	assert.Equal(t, []string{"f_abc12345"}, ts.ingest.built)
}

func TestIndexBuild_Error(t *testing.T) {
	ts := setupTestServices(t)
	ts.ingest.err = domain.ErrNotFound

	_, err := execute(t, "", "index", "build", "f_missing1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexSearch(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.search.results = sampleHits()

		out, err := execute(t, "", "index", "search", "--k", "3", "--file", "f_a", "what", "is")
		require.NoError(t, err)

		assert.Equal(t, "what is", ts.search.query)
		assert.Equal(t, 3, ts.search.k)
		assert.Equal(t, domain.SearchFilter{SourceID: "f_a"}, ts.search.filter)
		assert.Contains(t, out, "[1] a.pdf p.2 (0.120)")
		assert.Contains(t, out, "first chunk text")
		assert.Contains(t, out, "[2] f_b p.5")
	})

	t.Run("json", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.search.results = sampleHits()

		out, err := execute(t, "", "index", "search", "--json", "q")
		require.NoError(t, err)

		var hits []searchHit
		require.NoError(t, json.Unmarshal([]byte(out), &hits))
		require.Len(t, hits, 2)
		assert.Equal(t, "c1", hits[0].ChunkID)
		assert.Equal(t, "a.pdf", hits[0].Source)
		assert.Equal(t, defaultSearchK, ts.search.k)
	})

	t.Run("no results", func(t *testing.T) {
		setupTestServices(t)

		out, err := execute(t, "", "index", "search", "nothing")
		require.NoError(t, err)
		assert.Contains(t, out, "No results found.")
	})

	t.Run("non-positive k falls back", func(t *testing.T) {
		ts := setupTestServices(t)

		_, err := execute(t, "", "index", "search", "--k", "0", "q")
		require.NoError(t, err)
		assert.Equal(t, defaultSearchK, ts.search.k)
	})

	t.Run("error", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.search.err = errors.New("index missing")

		_, err := execute(t, "", "index", "search", "q")
		assert.EqualError(t, err, "search failed: index missing")
	})
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet(" a\n b\tc ", 10))
	assert.Equal(t, "abc...", snippet("abcdef", 3))
	assert.Equal(t, strings.Repeat("é", 2)+"...", snippet("éééé", 2))
}
