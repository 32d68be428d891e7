package driving

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// SearchService provides raw vector search to external actors.
type SearchService interface {
	// Search returns up to k chunks nearest to query, best first.
	Search(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error)
}
