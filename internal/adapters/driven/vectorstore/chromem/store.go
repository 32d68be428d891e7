// Package chromem provides a file-persisted vector store backed by chromem-go.
package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

const (
	collectionName = "chunks"
	indexFile      = "index.gob"
	metaFile       = "index_meta.json"

	keySourceID   = "source_id"
	keySourceName = "source_name"
	keyPage       = "page"
	keyPosition   = "position"
)

// Verify interface compliance at compile time.
var _ driven.VectorStore = (*Store)(nil)

// Store keeps chunks in a chromem collection and persists the whole
// database as a single gob export next to a small JSON sidecar.
type Store struct {
	mu   sync.RWMutex
	dir  string
	db   *chromemgo.DB
	col  *chromemgo.Collection
	meta indexMeta
}

// indexMeta is the sidecar written next to the chromem export.
type indexMeta struct {
	Dimension    int             `json:"dimension"`
	Tombstones   map[string]bool `json:"tombstones"`
	SourceCounts map[string]int  `json:"source_counts"`
}

func newMeta() indexMeta {
	return indexMeta{
		Tombstones:   make(map[string]bool),
		SourceCounts: make(map[string]int),
	}
}

// New creates an empty store that persists under dir.
func New(dir string) (*Store, error) {
	s := &Store{dir: dir}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// reset replaces the in-memory state with an empty database.
func (s *Store) reset() error {
	db := chromemgo.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, map[string]string{"hnsw:space": "cosine"}, noEmbed)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	s.db = db
	s.col = col
	s.meta = newMeta()
	return nil
}

// noEmbed refuses to embed: vectors are always computed by the
// embedding service before they reach the store.
func noEmbed(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("chromem store does not embed text")
}

// Load restores the persisted index. A missing index leaves the store empty.
func (s *Store) Load(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// load replaces the in-memory state with the persisted one. Callers must
// hold mu for writing.
func (s *Store) load() (bool, error) {
	path := filepath.Join(s.dir, indexFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, s.reset()
	}

	db := chromemgo.NewDB()
	if err := db.ImportFromFile(path, ""); err != nil {
		return false, fmt.Errorf("importing index: %w", err)
	}
	col, err := db.GetOrCreateCollection(collectionName, map[string]string{"hnsw:space": "cosine"}, noEmbed)
	if err != nil {
		return false, fmt.Errorf("opening collection: %w", err)
	}

	meta := newMeta()
	data, err := os.ReadFile(filepath.Join(s.dir, metaFile))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &meta); err != nil {
			return false, fmt.Errorf("decoding index meta: %w", err)
		}
		if meta.Tombstones == nil {
			meta.Tombstones = make(map[string]bool)
		}
		if meta.SourceCounts == nil {
			meta.SourceCounts = make(map[string]int)
		}
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("chromem: %s missing, tombstones reset", metaFile)
	default:
		return false, fmt.Errorf("reading index meta: %w", err)
	}

	s.db = db
	s.col = col
	s.meta = meta
	logger.Debug("chromem: loaded %d chunks (dim=%d)", col.Count(), meta.Dimension)
	return true, nil
}

// Add appends embedded chunks. Adding chunks of a tombstoned source first
// drops that source's old chunks and lifts the tombstone.
func (s *Store) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if !s.meta.Tombstones[c.SourceID] {
			continue
		}
		if err := s.dropSource(ctx, c.SourceID); err != nil {
			return err
		}
	}
	return s.append(ctx, chunks)
}

// Replace swaps the chunks of sourceID for chunks. A failed append
// restores the last persisted state, which the index manager keeps in
// step with memory.
func (s *Store) Replace(ctx context.Context, sourceID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dropSource(ctx, sourceID); err != nil {
		return err
	}
	err := s.append(ctx, chunks)
	if err == nil {
		if s.col.Count() == 0 {
			s.meta.Dimension = 0
		}
		return nil
	}
	if _, loadErr := s.load(); loadErr != nil {
		logger.Error("chromem: restoring index after failed replace: %v", loadErr)
	}
	return err
}

func (s *Store) dropSource(ctx context.Context, sourceID string) error {
	if s.col.Count() > 0 {
		if err := s.col.Delete(ctx, map[string]string{keySourceID: sourceID}, nil); err != nil {
			return fmt.Errorf("dropping source %s: %w", sourceID, err)
		}
	}
	delete(s.meta.Tombstones, sourceID)
	delete(s.meta.SourceCounts, sourceID)
	return nil
}

func (s *Store) append(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	contents := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		embeddings[i] = c.Embedding
		contents[i] = c.Content
		metadatas[i] = map[string]string{
			keySourceID:   c.SourceID,
			keySourceName: c.SourceName,
			keyPage:       strconv.Itoa(c.Page),
			keyPosition:   strconv.Itoa(c.Position),
		}
	}

	if err := s.col.Add(ctx, ids, embeddings, metadatas, contents); err != nil {
		return fmt.Errorf("adding chunks: %w", err)
	}

	if s.meta.Dimension == 0 {
		s.meta.Dimension = len(chunks[0].Embedding)
	}
	for _, c := range chunks {
		s.meta.SourceCounts[c.SourceID]++
	}
	return nil
}

// Remove deletes chunks by ID.
func (s *Store) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		doc, err := s.col.GetByID(ctx, id)
		if err != nil {
			continue
		}
		src := doc.Metadata[keySourceID]
		if s.meta.SourceCounts[src]--; s.meta.SourceCounts[src] <= 0 {
			delete(s.meta.SourceCounts, src)
		}
	}

	if err := s.col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("removing chunks: %w", err)
	}
	if s.col.Count() == 0 {
		s.meta.Dimension = 0
	}
	return nil
}

// Query returns up to k live chunks nearest to vector. The collection is
// over-fetched by the number of tombstoned chunks so that k live results
// come back whenever they exist.
func (s *Store) Query(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}
	if !filter.IsZero() && s.meta.Tombstones[filter.SourceID] {
		return []domain.ScoredChunk{}, nil
	}

	n := k + s.tombstonedChunks()
	if total := s.col.Count(); n > total {
		n = total
	}
	if n == 0 {
		return []domain.ScoredChunk{}, nil
	}

	var where map[string]string
	if !filter.IsZero() {
		where = map[string]string{keySourceID: filter.SourceID}
	}

	results, err := s.col.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	hits := make([]domain.ScoredChunk, 0, k)
	for _, r := range results {
		src := r.Metadata[keySourceID]
		if s.meta.Tombstones[src] {
			continue
		}
		page, _ := strconv.Atoi(r.Metadata[keyPage])
		pos, _ := strconv.Atoi(r.Metadata[keyPosition])
		hits = append(hits, domain.ScoredChunk{
			Chunk: domain.Chunk{
				ID:         r.ID,
				SourceID:   src,
				SourceName: r.Metadata[keySourceName],
				Page:       page,
				Position:   pos,
				Content:    r.Content,
			},
			Score: Distance(r.Similarity),
		})
		if len(hits) == k {
			break
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score < hits[j].Score })
	return hits, nil
}

// Distance converts cosine similarity of unit vectors into squared L2
// distance, so lower is better.
func Distance(similarity float32) float64 {
	return 2 * (1 - float64(similarity))
}

func (s *Store) tombstonedChunks() int {
	n := 0
	for src := range s.meta.Tombstones {
		n += s.meta.SourceCounts[src]
	}
	return n
}

// Tombstone marks every chunk of a source as deleted.
func (s *Store) Tombstone(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta.Tombstones[sourceID] = true
	return nil
}

// Persist writes the export and the sidecar through temporary files.
func (s *Store) Persist(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}

	target := filepath.Join(s.dir, indexFile)
	tmp := target + ".tmp"
	if err := s.db.ExportToFile(tmp, false, ""); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("exporting index: %w", err)
	}

	data, err := json.MarshalIndent(s.meta, "", "  ")
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("encoding index meta: %w", err)
	}
	metaPath := filepath.Join(s.dir, metaFile)
	if err := os.WriteFile(metaPath+".tmp", data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing index meta: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replacing index: %w", err)
	}
	if err := os.Rename(metaPath+".tmp", metaPath); err != nil {
		return fmt.Errorf("replacing index meta: %w", err)
	}
	return nil
}

// Dimensions returns the vector size fixed by the first add.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta.Dimension
}

// Stats describes the stored state.
func (s *Store) Stats() domain.IndexStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.IndexStats{
		Created:    s.col.Count() > 0 || s.meta.Dimension > 0,
		Chunks:     s.col.Count(),
		Dimensions: s.meta.Dimension,
		Tombstones: len(s.meta.Tombstones),
		Path:       s.dir,
	}
}

// Close releases resources. The store holds no open handles.
func (s *Store) Close() error {
	return nil
}
