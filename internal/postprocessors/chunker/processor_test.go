package chunker

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		assert.Equal(t, DefaultChunkSize, p.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, p.overlap)
		assert.Equal(t, DefaultSeparators, p.separators)
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithChunkSize(200), WithOverlap(20), WithSeparators("\n", ""))
		assert.Equal(t, 200, p.chunkSize)
		assert.Equal(t, 20, p.overlap)
		assert.Equal(t, []string{"\n", ""}, p.separators)
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		assert.Less(t, p.overlap, p.chunkSize)
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, p.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, p.overlap)
	})
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "chunker", New().Name())
}

func TestSplitPages(t *testing.T) {
	t.Run("no markers is page one", func(t *testing.T) {
		pages := SplitPages("hello world")
		require.Len(t, pages, 1)
		assert.Equal(t, 1, pages[0].Number)
		assert.Equal(t, "hello world", pages[0].Text)
	})

	t.Run("text before first marker is page one", func(t *testing.T) {
		pages := SplitPages("intro\n<!-- PAGE_BREAK: 2 -->\nbody")
		require.Len(t, pages, 2)
		assert.Equal(t, 1, pages[0].Number)
		assert.Equal(t, 2, pages[1].Number)
		assert.Equal(t, "\nbody", pages[1].Text)
	})

	t.Run("tolerates marker spacing", func(t *testing.T) {
		pages := SplitPages("<!--PAGE_BREAK:7-->x")
		require.Len(t, pages, 1)
		assert.Equal(t, 7, pages[0].Number)
		assert.Equal(t, "x", pages[0].Text)
	})

	t.Run("clamps page zero", func(t *testing.T) {
		pages := SplitPages("<!-- PAGE_BREAK: 0 -->x")
		require.Len(t, pages, 1)
		assert.Equal(t, 1, pages[0].Number)
	})
}

func TestProcessor_Chunk(t *testing.T) {
	ctx := context.Background()

	t.Run("no markers tags page one", func(t *testing.T) {
		doc := &domain.Document{ID: "f_1", Title: "pump.pdf", Content: "Check the oil level daily."}

		chunks, err := New().Chunk(ctx, doc)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, 1, chunks[0].Page)
		assert.Equal(t, "f_1", chunks[0].SourceID)
		assert.Equal(t, "pump.pdf", chunks[0].SourceName)
		assert.Equal(t, "Check the oil level daily.", chunks[0].Content)
		assert.NotEmpty(t, chunks[0].ID)
		assert.False(t, chunks[0].HasEmbedding())
	})

	t.Run("two pages", func(t *testing.T) {
		doc := &domain.Document{ID: "f_2", Content: "Alpha text.\n<!--PAGE_BREAK:2-->\nBeta text."}

		chunks, err := New().Chunk(ctx, doc)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "Alpha text.", chunks[0].Content)
		assert.Equal(t, 1, chunks[0].Page)
		assert.Equal(t, "Beta text.", chunks[1].Content)
		assert.Equal(t, 2, chunks[1].Page)
		assert.Equal(t, 0, chunks[0].Position)
		assert.Equal(t, 1, chunks[1].Position)
	})

	t.Run("empty page yields nothing", func(t *testing.T) {
		body := "<!-- PAGE_BREAK: 1 -->\nA\n<!-- PAGE_BREAK: 2 -->\n\n<!-- PAGE_BREAK: 3 -->\nC"

		chunks, err := New().Chunk(ctx, &domain.Document{ID: "f_3", Content: body})
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, 1, chunks[0].Page)
		assert.Equal(t, 3, chunks[1].Page)
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := New().Chunk(ctx, &domain.Document{ID: "f_4", Content: ""})
		assert.ErrorIs(t, err, domain.ErrEmptyDocument)

		_, err = New().Chunk(ctx, &domain.Document{ID: "f_4", Content: " \n<!-- PAGE_BREAK: 2 -->\n\t"})
		assert.ErrorIs(t, err, domain.ErrEmptyDocument)
	})

	t.Run("nil document", func(t *testing.T) {
		_, err := New().Chunk(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrEmptyDocument)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := New().Chunk(cctx, &domain.Document{ID: "f_5", Content: "text"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%03d", i)
	}
	return strings.Join(parts, " ")
}

func TestProcessor_Chunk_SizeAndOverlap(t *testing.T) {
	p := New(WithChunkSize(50), WithOverlap(10))
	text := words(200)

	chunks, err := p.Chunk(context.Background(), &domain.Document{ID: "f", Content: text})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	t.Run("chunks respect size", func(t *testing.T) {
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 50)
		}
	})

	t.Run("consecutive chunks overlap", func(t *testing.T) {
		for i := 0; i+1 < len(chunks); i++ {
			fields := strings.Fields(chunks[i].Content)
			last := fields[len(fields)-1]
			assert.Contains(t, chunks[i+1].Content, last, "chunk %d", i+1)
		}
	})

	t.Run("every word is covered", func(t *testing.T) {
		joined := make(map[string]bool)
		for _, c := range chunks {
			for _, w := range strings.Fields(c.Content) {
				joined[w] = true
			}
		}
		for _, w := range strings.Fields(text) {
			assert.True(t, joined[w], "missing %s", w)
		}
	})
}

func TestProcessor_SplitText(t *testing.T) {
	t.Run("prefers paragraph breaks", func(t *testing.T) {
		p := New(WithChunkSize(30), WithOverlap(0))
		got := p.SplitText("first paragraph here\n\nsecond paragraph here")
		assert.Equal(t, []string{"first paragraph here", "second paragraph here"}, got)
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		p := New(WithChunkSize(50), WithOverlap(0))
		got := p.SplitText(strings.Repeat("船", 120))
		require.Len(t, got, 3)
		assert.Equal(t, 50, utf8.RuneCountInString(got[0]))
		assert.Equal(t, 50, utf8.RuneCountInString(got[1]))
		assert.Equal(t, 20, utf8.RuneCountInString(got[2]))
	})

	t.Run("short text is one piece", func(t *testing.T) {
		assert.Equal(t, []string{"short"}, New().SplitText("short"))
	})
}
