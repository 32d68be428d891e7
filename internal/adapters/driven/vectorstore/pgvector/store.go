// Package pgvector provides a PostgreSQL vector store using the pgvector extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// Verify interface compliance at compile time.
var _ driven.VectorStore = (*Store)(nil)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS rag_chunks (
    id          TEXT PRIMARY KEY,
    source_id   TEXT NOT NULL,
    source_name TEXT NOT NULL DEFAULT '',
    page        INTEGER NOT NULL DEFAULT 1,
    position    INTEGER NOT NULL DEFAULT 0,
    content     TEXT NOT NULL,
    embedding   vector NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rag_chunks_source ON rag_chunks(source_id);

CREATE TABLE IF NOT EXISTS rag_tombstones (
    source_id  TEXT PRIMARY KEY,
    deleted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Store keeps chunks in PostgreSQL. Every write is durable on commit,
// so Persist has nothing left to do.
type Store struct {
	pool *pgxpool.Pool
	dsn  string
	dim  int
}

// New connects to PostgreSQL and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pgvector dsn: %w", domain.ErrNotConfigured)
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{pool: pool, dsn: dsn}, nil
}

// Load ensures the schema exists and reports whether any chunk is stored.
func (s *Store) Load(ctx context.Context) (bool, error) {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return false, fmt.Errorf("applying schema: %w", err)
	}

	var dim *int
	err := s.pool.QueryRow(ctx, `SELECT vector_dims(embedding) FROM rag_chunks LIMIT 1`).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading dimension: %w", err)
	}
	if dim != nil {
		s.dim = *dim
	}
	logger.Debug("pgvector: loaded index (dim=%d)", s.dim)
	return true, nil
}

// Add inserts chunks in one transaction. Chunks of a tombstoned source
// replace that source's old chunks and lift the tombstone.
func (s *Store) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	revived := make(map[string]bool)
	for _, c := range chunks {
		if revived[c.SourceID] {
			continue
		}
		revived[c.SourceID] = true
		tag, err := tx.Exec(ctx, `DELETE FROM rag_tombstones WHERE source_id = $1`, c.SourceID)
		if err != nil {
			return fmt.Errorf("lifting tombstone: %w", err)
		}
		if tag.RowsAffected() > 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM rag_chunks WHERE source_id = $1`, c.SourceID); err != nil {
				return fmt.Errorf("dropping tombstoned source: %w", err)
			}
		}
	}

	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	if s.dim == 0 {
		s.dim = len(chunks[0].Embedding)
	}
	return nil
}

// Replace deletes the source's chunks and tombstone and inserts chunks in
// one transaction.
func (s *Store) Replace(ctx context.Context, sourceID string, chunks []domain.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM rag_tombstones WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("lifting tombstone: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rag_chunks WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("dropping chunks of %s: %w", sourceID, err)
	}
	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing replacement: %w", err)
	}
	if s.dim == 0 && len(chunks) > 0 {
		s.dim = len(chunks[0].Embedding)
	}
	return nil
}

func insertChunks(ctx context.Context, tx pgx.Tx, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(
			`INSERT INTO rag_chunks (id, source_id, source_name, page, position, content, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
			c.ID, c.SourceID, c.SourceName, c.Page, c.Position, c.Content, pgv.NewVector(c.Embedding),
		)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range chunks {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}
	return nil
}

// Remove deletes chunks by ID.
func (s *Store) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM rag_chunks WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("removing chunks: %w", err)
	}
	return nil
}

// Query returns up to k live chunks ordered by cosine distance.
func (s *Store) Query(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	hits := []domain.ScoredChunk{}
	if k <= 0 {
		return hits, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.source_id, c.source_name, c.page, c.position, c.content, c.embedding <=> $1 AS distance
		 FROM rag_chunks c
		 WHERE ($2 = '' OR c.source_id = $2)
		   AND NOT EXISTS (SELECT 1 FROM rag_tombstones t WHERE t.source_id = c.source_id)
		 ORDER BY c.embedding <=> $1
		 LIMIT $3`,
		pgv.NewVector(vector), filter.SourceID, k,
	)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c        domain.Chunk
			distance float64
		)
		if err := rows.Scan(&c.ID, &c.SourceID, &c.SourceName, &c.Page, &c.Position, &c.Content, &distance); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		hits = append(hits, domain.ScoredChunk{Chunk: c, Score: Score(distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return hits, nil
}

// Score converts pgvector cosine distance (1 - similarity) into squared
// L2 distance between unit vectors.
func Score(cosineDistance float64) float64 {
	return 2 * cosineDistance
}

// Tombstone marks every chunk of a source as deleted.
func (s *Store) Tombstone(ctx context.Context, sourceID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rag_tombstones (source_id) VALUES ($1) ON CONFLICT (source_id) DO NOTHING`,
		sourceID,
	)
	if err != nil {
		return fmt.Errorf("recording tombstone: %w", err)
	}
	return nil
}

// Persist is a no-op: every write is committed as it happens.
func (s *Store) Persist(_ context.Context) error {
	return nil
}

// Dimensions returns the vector size seen by Load or the first Add.
func (s *Store) Dimensions() int {
	return s.dim
}

// Stats describes the stored state.
func (s *Store) Stats() domain.IndexStats {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st := domain.IndexStats{Dimensions: s.dim, Path: "postgres"}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rag_chunks`).Scan(&st.Chunks); err != nil {
		logger.Warn("pgvector: counting chunks: %v", err)
		return st
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rag_tombstones`).Scan(&st.Tombstones); err != nil {
		logger.Warn("pgvector: counting tombstones: %v", err)
	}
	st.Created = st.Chunks > 0
	return st
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
