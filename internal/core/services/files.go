package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// Verify interface compliance.
var _ driving.FileService = (*FileService)(nil)

// PreviewDPI is the resolution of rendered page previews.
const PreviewDPI = 144

// FileService lists, inspects and deletes stored documents.
type FileService struct {
	files   driven.FileStore
	parser  driven.DocumentParser
	index   *IndexManager
	jobs    driven.JobStore
	tracker *UploadTracker
}

// NewFileService creates a file service. The tracker may be nil.
func NewFileService(
	files driven.FileStore,
	parser driven.DocumentParser,
	index *IndexManager,
	jobs driven.JobStore,
	tracker *UploadTracker,
) *FileService {
	if tracker == nil {
		tracker = NewUploadTracker()
	}
	return &FileService{
		files:   files,
		parser:  parser,
		index:   index,
		jobs:    jobs,
		tracker: tracker,
	}
}

// List returns every stored file, newest first. Records missing the page
// count or upload time are repaired from the stored PDF and rewritten.
func (s *FileService) List(ctx context.Context) ([]domain.FileEntry, error) {
	ids, err := s.files.ListFileIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	entries := make([]domain.FileEntry, 0, len(ids))
	for _, id := range ids {
		meta, err := s.files.LoadMeta(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Warn("reading metadata of %s: %v", id, err)
			}
			meta = &domain.FileMeta{ID: id, OriginalFilename: id}
		}
		if meta.NeedsRepair() {
			s.repair(ctx, meta)
		}

		status := domain.FileStatusUploaded
		if s.files.HasMarkdown(id) {
			status = domain.FileStatusReady
		}
		entries = append(entries, domain.FileEntry{
			ID:         id,
			Name:       meta.OriginalFilename,
			UploadTime: meta.UploadTime,
			PageCount:  meta.PageCount,
			Status:     status,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UploadTime > entries[j].UploadTime
	})
	return entries, nil
}

// repair fills in missing fields when the original PDF is present.
func (s *FileService) repair(ctx context.Context, meta *domain.FileMeta) {
	size, err := s.files.Size(meta.ID)
	if err != nil {
		return
	}
	if meta.UploadTime == 0 {
		if mtime, err := s.files.ModTime(meta.ID); err == nil {
			meta.UploadTime = mtime
		}
	}
	if meta.PageCount == 0 {
		if n, err := s.parser.PageCount(s.files.OriginalPath(meta.ID)); err == nil {
			meta.PageCount = n
		}
	}
	meta.SizeBytes = size
	if meta.OriginalFilename == "" {
		meta.OriginalFilename = meta.ID
	}
	if err := s.files.SaveMeta(ctx, *meta); err != nil {
		logger.Warn("repairing metadata of %s: %v", meta.ID, err)
	}
}

// Delete removes a file's work directory, tombstones its chunks and drops
// its job history.
func (s *FileService) Delete(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("missing file id: %w", domain.ErrInvalidInput)
	}
	if !s.files.Exists(fileID) {
		return fmt.Errorf("file %s: %w", fileID, domain.ErrNotFound)
	}

	if err := s.index.DeleteSource(ctx, fileID); err != nil {
		return fmt.Errorf("removing %s from index: %w", fileID, err)
	}
	if err := s.files.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("deleting %s: %w", fileID, err)
	}
	if err := s.jobs.DeleteForFile(ctx, fileID); err != nil {
		logger.Warn("clearing jobs of %s: %v", fileID, err)
	}
	s.tracker.Forget(fileID)

	logger.Debug("Deleted %s", fileID)
	return nil
}

// PageImages returns the page's image names ordered by image index.
func (s *FileService) PageImages(_ context.Context, fileID string, page int) ([]string, error) {
	if fileID == "" || page < 1 {
		return nil, fmt.Errorf("file %q page %d: %w", fileID, page, domain.ErrInvalidInput)
	}

	names, err := s.files.ListImages(fileID)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}

	pattern := domain.PageImagePattern(page)
	matched := make([]string, 0, len(names))
	for _, n := range names {
		if pattern.MatchString(n) {
			matched = append(matched, n)
		}
	}
	domain.SortImageNames(matched)
	return matched, nil
}

// ImagePath resolves an image inside the file's images directory.
func (s *FileService) ImagePath(_ context.Context, fileID, name string) (string, error) {
	if fileID == "" || name == "" {
		return "", fmt.Errorf("missing file id or image path: %w", domain.ErrInvalidInput)
	}
	return s.files.ResolveImage(fileID, name)
}

// RenderPage renders one page of the original PDF to PNG.
func (s *FileService) RenderPage(ctx context.Context, fileID string, page int) ([]byte, error) {
	if fileID == "" || page < 1 {
		return nil, fmt.Errorf("file %q page %d: %w", fileID, page, domain.ErrInvalidInput)
	}
	if _, err := s.files.Size(fileID); err != nil {
		return nil, fmt.Errorf("original of %s: %w", fileID, domain.ErrNotFound)
	}
	return s.parser.RenderPage(ctx, s.files.OriginalPath(fileID), page, PreviewDPI)
}
