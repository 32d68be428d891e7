package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// Verify interface compliance.
var _ driving.IngestService = (*IngestService)(nil)

// swaggerPlaceholder is what API explorers send for an unset string field.
const swaggerPlaceholder = "string"

// UploadTracker remembers the most recent upload so that callers can omit
// the file id.
type UploadTracker struct {
	mu     sync.RWMutex
	latest string
}

// NewUploadTracker creates an empty tracker.
func NewUploadTracker() *UploadTracker {
	return &UploadTracker{}
}

// Latest returns the most recent upload, or "".
func (t *UploadTracker) Latest() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

// Track records fileID as the most recent upload.
func (t *UploadTracker) Track(fileID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = fileID
}

// Forget clears the latest upload if it is fileID.
func (t *UploadTracker) Forget(fileID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == fileID {
		t.latest = ""
	}
}

// Resolve maps an empty or placeholder id to the latest upload.
func (t *UploadTracker) Resolve(fileID string) (string, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" || strings.EqualFold(fileID, swaggerPlaceholder) {
		fileID = t.Latest()
	}
	if fileID == "" {
		return "", domain.ErrNoFileID
	}
	return fileID, nil
}

// IngestService stores uploads and turns them into indexed chunks.
type IngestService struct {
	files      driven.FileStore
	parser     driven.DocumentParser
	normaliser driven.Normaliser
	chunker    driven.Chunker
	index      *IndexManager
	jobs       driven.JobStore
	captioner  driven.ImageCaptioner
	tracker    *UploadTracker

	// Background jobs outlive the request that started them.
	jobCtx    context.Context
	cancelJob context.CancelFunc
	wg        sync.WaitGroup

	now func() time.Time
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithCaptioner enables image captioning during parsing.
func WithCaptioner(c driven.ImageCaptioner) IngestOption {
	return func(s *IngestService) {
		s.captioner = c
	}
}

// WithUploadTracker shares the latest-upload tracker with other services.
func WithUploadTracker(t *UploadTracker) IngestOption {
	return func(s *IngestService) {
		s.tracker = t
	}
}

// NewIngestService creates an ingest service.
func NewIngestService(
	files driven.FileStore,
	parser driven.DocumentParser,
	normaliser driven.Normaliser,
	chunker driven.Chunker,
	index *IndexManager,
	jobs driven.JobStore,
	opts ...IngestOption,
) *IngestService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &IngestService{
		files:      files,
		parser:     parser,
		normaliser: normaliser,
		chunker:    chunker,
		index:      index,
		jobs:       jobs,
		jobCtx:     ctx,
		cancelJob:  cancel,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracker == nil {
		s.tracker = NewUploadTracker()
	}
	return s
}

// Tracker returns the latest-upload tracker.
func (s *IngestService) Tracker() *UploadTracker {
	return s.tracker
}

// Upload stores a PDF under a fresh file id and records its metadata.
func (s *IngestService) Upload(ctx context.Context, filename string, content []byte) (*domain.FileMeta, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty upload: %w", domain.ErrInvalidInput)
	}

	fileID := newID("f")
	path, err := s.files.SaveOriginal(ctx, fileID, content)
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	pages, err := s.parser.PageCount(path)
	if err != nil {
		logger.Warn("reading page count of %s: %v", fileID, err)
		pages = 0
	}

	if filename == "" {
		filename = fileID + ".pdf"
	}
	meta := domain.FileMeta{
		ID:               fileID,
		OriginalFilename: filename,
		UploadTime:       unixSeconds(s.now()),
		PageCount:        pages,
		SizeBytes:        int64(len(content)),
	}
	if err := s.files.SaveMeta(ctx, meta); err != nil {
		return nil, fmt.Errorf("saving metadata: %w", err)
	}

	s.tracker.Track(fileID)
	logger.Debug("Uploaded %s as %s (%d pages)", filename, fileID, pages)
	return &meta, nil
}

// StartParse creates a job and runs parse and index in the background.
func (s *IngestService) StartParse(ctx context.Context, fileID string) (*domain.IngestJob, error) {
	fileID, err := s.tracker.Resolve(fileID)
	if err != nil {
		return nil, err
	}
	if !s.files.Exists(fileID) {
		return nil, fmt.Errorf("file %s: %w", fileID, domain.ErrNotFound)
	}

	now := s.now()
	job := &domain.IngestJob{
		ID:        newID("j"),
		FileID:    fileID,
		Status:    domain.JobStatusParsing,
		Progress:  domain.ProgressStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("saving job: %w", err)
	}

	started := *job
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(job)
	}()

	return &started, nil
}

// runJob advances a job through its stages. It is the job's only writer.
func (s *IngestService) runJob(job *domain.IngestJob) {
	ctx := s.jobCtx
	logger.Section("Ingest Job " + job.ID)

	s.advance(ctx, job, domain.JobStatusParsing, domain.ProgressParsing)
	if err := s.Parse(ctx, job.FileID); err != nil {
		s.failJob(ctx, job, err)
		return
	}

	s.advance(ctx, job, domain.JobStatusIndexing, domain.ProgressIndexing)
	if _, err := s.BuildIndex(ctx, job.FileID); err != nil {
		s.failJob(ctx, job, err)
		return
	}

	s.advance(ctx, job, domain.JobStatusReady, domain.ProgressDone)
	logger.Debug("Job %s finished", job.ID)
}

func (s *IngestService) advance(ctx context.Context, job *domain.IngestJob, status domain.JobStatus, progress int) {
	job.Status = status
	job.Progress = progress
	job.UpdatedAt = s.now()
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		logger.Warn("saving job %s: %v", job.ID, err)
	}
}

func (s *IngestService) failJob(ctx context.Context, job *domain.IngestJob, cause error) {
	logger.Error("job %s for %s: %v", job.ID, job.FileID, cause)
	job.Status = domain.JobStatusError
	job.Progress = 0
	job.Error = cause.Error()
	job.UpdatedAt = s.now()
	// The job context may be the reason for the failure.
	if err := s.jobs.SaveJob(context.WithoutCancel(ctx), job); err != nil {
		logger.Warn("saving job %s: %v", job.ID, err)
	}
}

// Status returns the latest job of a file.
func (s *IngestService) Status(ctx context.Context, fileID string) (*domain.IngestJob, error) {
	fileID, err := s.tracker.Resolve(fileID)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.LatestForFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Parse extracts the PDF, captions its images and writes output.md.
func (s *IngestService) Parse(ctx context.Context, fileID string) error {
	logger.Section("Parse " + fileID)

	imagesDir, err := s.files.ImagesDir(fileID)
	if err != nil {
		return fmt.Errorf("preparing images dir: %w", err)
	}

	parsed, err := s.parser.Parse(ctx, s.files.OriginalPath(fileID), imagesDir)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", fileID, err)
	}
	logger.Debug("Elements: %d, images: %d, pages: %d", len(parsed.Elements), len(parsed.Images), parsed.PageCount)

	if s.captioner != nil {
		for i := range parsed.Images {
			if err := ctx.Err(); err != nil {
				return err
			}
			parsed.Images[i].Caption = s.captioner.Caption(ctx, parsed.Images[i].Path)
		}
	}

	body, err := s.normaliser.Normalise(ctx, parsed)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", fileID, err)
	}
	if err := s.files.WriteMarkdown(ctx, fileID, body); err != nil {
		return fmt.Errorf("writing markdown: %w", err)
	}
	return nil
}

// BuildIndex chunks output.md and adds the chunks to the index. Chunks from
// an earlier build of the same file are replaced.
func (s *IngestService) BuildIndex(ctx context.Context, fileID string) (*domain.IndexResult, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, fmt.Errorf("missing file id: %w", domain.ErrInvalidInput)
	}

	body, err := s.files.ReadMarkdown(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("reading markdown of %s: %w", fileID, err)
	}

	title := fileID
	if meta, err := s.files.LoadMeta(ctx, fileID); err == nil && meta.OriginalFilename != "" {
		title = meta.OriginalFilename
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("reading metadata of %s: %v", fileID, err)
	}

	chunks, err := s.chunker.Chunk(ctx, &domain.Document{ID: fileID, Title: title, Content: body})
	if err != nil {
		return nil, fmt.Errorf("chunking %s: %w", fileID, err)
	}

	n, err := s.index.Replace(ctx, fileID, chunks)
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", fileID, err)
	}

	logger.Debug("Indexed %s: %d chunks", fileID, n)
	return &domain.IndexResult{
		FileID:    fileID,
		Chunks:    n,
		IndexPath: s.files.IndexDir(),
	}, nil
}

// Ingest parses and indexes a file on the calling goroutine.
func (s *IngestService) Ingest(ctx context.Context, fileID string) (*domain.IndexResult, error) {
	if err := s.Parse(ctx, fileID); err != nil {
		return nil, err
	}
	return s.BuildIndex(ctx, fileID)
}

// Wait blocks until every background job has finished.
func (s *IngestService) Wait() {
	s.wg.Wait()
}

// Close cancels running jobs and waits for them to stop.
func (s *IngestService) Close() error {
	s.cancelJob()
	s.wg.Wait()
	return nil
}

// newID returns prefix_ followed by eight lowercase alphanumerics.
func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
