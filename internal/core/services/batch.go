package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// Verify interface compliance.
var _ driving.BatchService = (*BatchIngester)(nil)

// BatchIngester imports every PDF of a directory, keeping a registry of
// what has been indexed.
type BatchIngester struct {
	ingest      *IngestService
	files       driven.FileStore
	parser      driven.DocumentParser
	registry    driven.RegistryStore
	concurrency int

	// mu serialises registry writes and report updates.
	mu sync.Mutex
}

// BatchOption configures a BatchIngester.
type BatchOption func(*BatchIngester)

// WithBatchConcurrency bounds how many files are processed at once.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchIngester) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchIngester creates a batch ingester.
func NewBatchIngester(
	ingest *IngestService,
	files driven.FileStore,
	parser driven.DocumentParser,
	registry driven.RegistryStore,
	opts ...BatchOption,
) *BatchIngester {
	b := &BatchIngester{
		ingest:      ingest,
		files:       files,
		parser:      parser,
		registry:    registry,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SanitiseID derives a file id from a file name: the extension is dropped
// and anything outside [A-Za-z0-9_-] becomes an underscore.
func SanitiseID(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Run ingests the PDFs of sourceDir. Failures are recorded per file and do
// not stop the batch; only a scan failure or cancellation is returned.
func (b *BatchIngester) Run(ctx context.Context, sourceDir string, force bool) (*domain.BatchReport, error) {
	logger.Section("Batch Ingest")
	logger.Debug("Source: %s, force: %v", sourceDir, force)

	paths, err := b.files.ListSourcePDFs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", sourceDir, err)
	}

	report := &domain.BatchReport{Scanned: len(paths)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := b.ingestOne(gctx, path, force)

			b.mu.Lock()
			defer b.mu.Unlock()
			switch outcome {
			case outcomeIndexed:
				report.Indexed++
			case outcomeSkipped:
				report.Skipped++
			default:
				report.Failed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	logger.Debug("Scanned %d, indexed %d, skipped %d, failed %d",
		report.Scanned, report.Indexed, report.Skipped, report.Failed)
	return report, nil
}

type batchOutcome int

const (
	outcomeIndexed batchOutcome = iota
	outcomeSkipped
	outcomeFailed
)

func (b *BatchIngester) ingestOne(ctx context.Context, path string, force bool) batchOutcome {
	name := filepath.Base(path)
	fileID := SanitiseID(name)

	entry, err := b.registry.Get(ctx, fileID)
	switch {
	case err == nil && entry.Status == domain.RegistryIndexed && !force:
		logger.Debug("Skipping %s: already indexed as %s", name, fileID)
		return outcomeSkipped
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		logger.Warn("reading registry entry %s: %v", fileID, err)
	}

	stored, err := b.files.ImportOriginal(ctx, fileID, path)
	if err != nil {
		// Nothing was produced, so the registry is left as it was.
		logger.Error("copying %s: %v", name, err)
		return outcomeFailed
	}

	pages, err := b.parser.PageCount(stored)
	if err != nil {
		logger.Warn("reading page count of %s: %v", fileID, err)
	}
	size, _ := b.files.Size(fileID)
	meta := domain.FileMeta{
		ID:               fileID,
		OriginalFilename: name,
		UploadTime:       unixSeconds(time.Now()),
		PageCount:        pages,
		SizeBytes:        size,
	}
	if err := b.files.SaveMeta(ctx, meta); err != nil {
		logger.Warn("saving metadata of %s: %v", fileID, err)
	}

	if err := b.ingest.Parse(ctx, fileID); err != nil {
		b.record(ctx, &domain.RegistryEntry{
			FileID:       fileID,
			OriginalName: name,
			SourcePath:   path,
			Status:       domain.RegistryFailedParse,
			Error:        err.Error(),
		})
		return outcomeFailed
	}

	res, err := b.ingest.BuildIndex(ctx, fileID)
	if err != nil {
		b.record(ctx, &domain.RegistryEntry{
			FileID:       fileID,
			OriginalName: name,
			SourcePath:   path,
			Status:       domain.RegistryFailedIndex,
			Error:        err.Error(),
		})
		return outcomeFailed
	}

	b.record(ctx, &domain.RegistryEntry{
		FileID:       fileID,
		OriginalName: name,
		SourcePath:   path,
		Status:       domain.RegistryIndexed,
		Chunks:       res.Chunks,
	})
	return outcomeIndexed
}

func (b *BatchIngester) record(ctx context.Context, entry *domain.RegistryEntry) {
	entry.LastUpdate = time.Now()
	if entry.Error != "" {
		logger.Error("%s: %s: %s", entry.OriginalName, entry.Status, entry.Error)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.registry.Put(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("saving registry entry %s: %v", entry.FileID, err)
	}
}
