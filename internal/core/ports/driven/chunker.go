package driven

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// Chunker splits a page-annotated document into page-tagged chunks.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk returns the chunks of doc in document order, without embeddings.
	// It fails with domain.ErrEmptyDocument when no chunk survives trimming.
	Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
