package domain

// Document is a page-annotated document body ready for chunking.
// Content carries PAGE_BREAK markers produced by the pdf normaliser.
type Document struct {
	// ID identifies the owning source file.
	ID string

	// Title is the display name, normally the original filename.
	Title string

	// Content is the page-annotated body.
	Content string
}

// Chunk represents a searchable unit of a document.
// Chunks are immutable once created.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// SourceID identifies the owning document.
	SourceID string

	// SourceName is the display name of the owning document.
	SourceName string

	// Page is the 1-based page the chunk was cut from.
	Page int

	// Content is the trimmed, non-empty chunk text.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation for semantic search.
	// Nil until the index manager embeds the chunk.
	Embedding []float32
}

// HasEmbedding reports whether the chunk already carries a vector.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
