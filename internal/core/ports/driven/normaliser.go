package driven

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// Normaliser turns a parsed document into the page-annotated markdown body
// that the chunker consumes.
type Normaliser interface {
	// Name returns the normaliser name for logging.
	Name() string

	// Normalise renders the parsed elements and captioned images.
	// Page transitions are marked with <!-- PAGE_BREAK: n --> lines.
	Normalise(ctx context.Context, parsed *domain.ParsedDocument) (string, error)
}
