package domain

// SearchFilter restricts a vector search.
// A zero filter matches every live chunk.
type SearchFilter struct {
	// SourceID restricts results to chunks of one document.
	SourceID string
}

// IsZero reports whether the filter matches everything.
func (f SearchFilter) IsZero() bool {
	return f.SourceID == ""
}

// ScoredChunk is a single vector search hit.
type ScoredChunk struct {
	// Chunk is the matched chunk. Embedding is not populated.
	Chunk Chunk

	// Score is the distance to the query; lower is better.
	Score float64
}

// IndexStats describes the state of the vector index.
type IndexStats struct {
	// Created is false until the first add or a successful load.
	Created bool

	// Chunks is the number of stored chunks, tombstoned ones included.
	Chunks int

	// Dimensions is the fixed vector size, 0 before the first add.
	Dimensions int

	// Tombstones is the number of deleted sources.
	Tombstones int

	// Path is where the index is persisted.
	Path string
}
