package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// Ensure IndexManager implements the interface.
var _ driving.SearchService = (*IndexManager)(nil)

// IndexManager owns the global vector index. Writers hold the write lock
// across append and persist, so a search never observes a half-written add.
type IndexManager struct {
	mu       sync.RWMutex
	embedder driven.EmbeddingService
	store    driven.VectorStore
	created  bool
}

// NewIndexManager creates an index manager over a vector store.
func NewIndexManager(embedder driven.EmbeddingService, store driven.VectorStore) *IndexManager {
	return &IndexManager{
		embedder: embedder,
		store:    store,
	}
}

// Load restores the persisted index. A missing index is not an error.
func (m *IndexManager) Load(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created, err := m.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading index: %w", err)
	}
	m.created = created
	return created, nil
}

// Add embeds the chunks that lack a vector, appends them and persists the
// index. The whole batch is rejected if any embedding fails or has the
// wrong dimension. Returns the number of chunks added.
func (m *IndexManager) Add(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	logger.Section("Index Add")

	batch := make([]domain.Chunk, len(chunks))
	copy(batch, chunks)

	if err := m.embedMissing(ctx, batch); err != nil {
		return 0, err
	}

	dim, err := m.checkDimensions(batch)
	if err != nil {
		return 0, err
	}

	if err := m.store.Add(ctx, batch); err != nil {
		return 0, fmt.Errorf("appending chunks: %w", err)
	}

	if err := m.store.Persist(ctx); err != nil {
		ids := make([]string, len(batch))
		for i := range batch {
			ids[i] = batch[i].ID
		}
		if rmErr := m.store.Remove(ctx, ids); rmErr != nil {
			logger.Error("index: rollback after failed persist: %v", rmErr)
		}
		return 0, fmt.Errorf("persisting index: %w", err)
	}

	m.created = true
	logger.Debug("Added %d chunks (dim=%d)", len(batch), dim)
	return len(batch), nil
}

// Replace swaps every chunk of sourceID for chunks, embedding them first.
// Nothing changes unless embedding succeeds; searches see either the old
// chunks or the new ones. A failed persist restores the last persisted
// index.
func (m *IndexManager) Replace(ctx context.Context, sourceID string, chunks []domain.Chunk) (int, error) {
	batch := make([]domain.Chunk, len(chunks))
	copy(batch, chunks)
	for i := range batch {
		if batch[i].SourceID != sourceID {
			return 0, fmt.Errorf("chunk %s belongs to %q, not %q: %w",
				batch[i].ID, batch[i].SourceID, sourceID, domain.ErrInvalidInput)
		}
	}
	if err := m.embedMissing(ctx, batch); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	logger.Section("Index Replace")

	if !m.created && len(batch) == 0 {
		return 0, nil
	}
	if len(batch) > 0 {
		if _, err := m.checkDimensions(batch); err != nil {
			return 0, err
		}
	}

	if err := m.store.Replace(ctx, sourceID, batch); err != nil {
		return 0, fmt.Errorf("replacing chunks of %s: %w", sourceID, err)
	}
	if err := m.store.Persist(ctx); err != nil {
		if _, loadErr := m.store.Load(ctx); loadErr != nil {
			logger.Error("index: restoring after failed persist: %v", loadErr)
		}
		return 0, fmt.Errorf("persisting index: %w", err)
	}

	m.created = true
	logger.Debug("Replaced %s with %d chunks", sourceID, len(batch))
	return len(batch), nil
}

// checkDimensions requires every chunk to match the index dimension, or
// the first chunk's when the index is empty.
func (m *IndexManager) checkDimensions(batch []domain.Chunk) (int, error) {
	dim := m.store.Dimensions()
	if dim == 0 {
		dim = len(batch[0].Embedding)
	}
	for i := range batch {
		if len(batch[i].Embedding) != dim {
			return 0, fmt.Errorf("chunk %d has dimension %d, index has %d: %w",
				i, len(batch[i].Embedding), dim, domain.ErrEmbedding)
		}
	}
	return dim, nil
}

func (m *IndexManager) embedMissing(ctx context.Context, chunks []domain.Chunk) error {
	var (
		texts []string
		idx   []int
	)
	for i := range chunks {
		if !chunks[i].HasEmbedding() {
			texts = append(texts, chunks[i].Content)
			idx = append(idx, i)
		}
	}
	if len(texts) == 0 {
		return nil
	}
	if m.embedder == nil {
		return fmt.Errorf("no embedding service: %w", domain.ErrEmbedding)
	}

	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w: %w", len(texts), domain.ErrEmbedding, err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding returned %d vectors for %d chunks: %w",
			len(vectors), len(texts), domain.ErrEmbedding)
	}
	for j, i := range idx {
		if len(vectors[j]) == 0 {
			return fmt.Errorf("empty embedding for chunk %d: %w", i, domain.ErrEmbedding)
		}
		chunks[i].Embedding = vectors[j]
	}
	return nil
}

// Search embeds the query and returns up to k chunks, lowest score first.
func (m *IndexManager) Search(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logger.Section("Vector Search")
	logger.Debug("Query: %q, k=%d, source=%q", query, k, filter.SourceID)

	if !m.created {
		return nil, domain.ErrIndexNotFound
	}
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 {
		return []domain.ScoredChunk{}, nil
	}
	if m.embedder == nil {
		return nil, fmt.Errorf("no embedding service: %w", domain.ErrNotConfigured)
	}

	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if dim := m.store.Dimensions(); dim > 0 && len(vector) != dim {
		return nil, fmt.Errorf("query has dimension %d, index has %d: %w", len(vector), dim, domain.ErrEmbedding)
	}

	hits, err := m.store.Query(ctx, vector, k, filter)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	if hits == nil {
		hits = []domain.ScoredChunk{}
	}
	logger.Debug("Hits: %d", len(hits))
	return hits, nil
}

// Persist writes the index durably. An index that was never created is
// not written, so a later Load still reports it missing.
func (m *IndexManager) Persist(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.created {
		return nil
	}
	if err := m.store.Persist(ctx); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}
	return nil
}

// DeleteSource tombstones every chunk of a source and persists the tombstone.
func (m *IndexManager) DeleteSource(ctx context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.created {
		return nil
	}
	if err := m.store.Tombstone(ctx, sourceID); err != nil {
		return fmt.Errorf("tombstoning %s: %w", sourceID, err)
	}
	if err := m.store.Persist(ctx); err != nil {
		return fmt.Errorf("persisting tombstone: %w", err)
	}
	return nil
}

// Stats describes the index.
func (m *IndexManager) Stats() domain.IndexStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.store.Stats()
	st.Created = m.created
	return st
}

// Close releases the store.
func (m *IndexManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Close()
}
