package driven

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// VectorStore holds embedded chunks and answers nearest-neighbour queries.
// Stores are not required to be safe for concurrent writers; the index
// manager serialises Add, Replace, Remove, Tombstone and Persist.
type VectorStore interface {
	// Load restores persisted state. It returns false and no error when
	// nothing has been persisted yet.
	Load(ctx context.Context) (bool, error)

	// Add appends embedded chunks.
	Add(ctx context.Context, chunks []domain.Chunk) error

	// Replace drops every chunk of sourceID, and its tombstone, then
	// appends chunks. On error the store keeps its previous contents.
	Replace(ctx context.Context, sourceID string, chunks []domain.Chunk) error

	// Remove deletes chunks by ID. Used to roll back a failed add.
	Remove(ctx context.Context, ids []string) error

	// Query returns up to k live chunks nearest to vector, best first.
	// Chunks of tombstoned sources are never returned.
	Query(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error)

	// Tombstone marks every chunk of a source as deleted.
	Tombstone(ctx context.Context, sourceID string) error

	// Persist writes the current state durably. Readers of the persisted
	// state never observe a partially written index.
	Persist(ctx context.Context) error

	// Dimensions returns the vector size recorded by the store, 0 if empty.
	Dimensions() int

	// Stats describes the stored state.
	Stats() domain.IndexStats

	// Close releases resources.
	Close() error
}
