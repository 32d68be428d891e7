package driving

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// IngestService uploads, parses and indexes documents.
type IngestService interface {
	// Upload stores a PDF and its metadata record.
	Upload(ctx context.Context, filename string, content []byte) (*domain.FileMeta, error)

	// StartParse launches a background parse-and-index job.
	// An empty fileID selects the most recent upload.
	StartParse(ctx context.Context, fileID string) (*domain.IngestJob, error)

	// Status returns the latest job of a file. An empty fileID selects the
	// most recent upload; domain.ErrNotFound means nothing is tracked.
	Status(ctx context.Context, fileID string) (*domain.IngestJob, error)

	// Parse converts a stored PDF into output.md, extracting and captioning
	// its images.
	Parse(ctx context.Context, fileID string) error

	// BuildIndex chunks a parsed file and adds it to the vector index.
	BuildIndex(ctx context.Context, fileID string) (*domain.IndexResult, error)

	// Ingest parses and indexes a file synchronously.
	Ingest(ctx context.Context, fileID string) (*domain.IndexResult, error)

	// Wait blocks until every background job has finished.
	Wait()
}

// BatchService ingests every PDF of a directory.
type BatchService interface {
	// Run ingests the PDFs found in sourceDir. Files already indexed are
	// skipped unless force is set.
	Run(ctx context.Context, sourceDir string, force bool) (*domain.BatchReport, error)
}
