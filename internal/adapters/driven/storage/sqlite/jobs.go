package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
)

var _ driven.JobStore = (*jobStore)(nil)

// jobStore implements driven.JobStore.
type jobStore struct {
	db *sql.DB
}

const jobColumns = "id, file_id, status, progress, error, created_at, updated_at"

// SaveJob creates or updates a job.
func (s *jobStore) SaveJob(ctx context.Context, job *domain.IngestJob) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, job.ID, job.FileID, string(job.Status), job.Progress, nullString(job.Error),
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *jobStore) GetJob(ctx context.Context, jobID string) (*domain.IngestJob, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM ingest_jobs WHERE id = ?", jobID)
	return scanJob(row)
}

// LatestForFile returns the most recently created job of a file.
func (s *jobStore) LatestForFile(ctx context.Context, fileID string) (*domain.IngestJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM ingest_jobs
		WHERE file_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, fileID)
	return scanJob(row)
}

// DeleteForFile removes every job of a file.
func (s *jobStore) DeleteForFile(ctx context.Context, fileID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM ingest_jobs WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("deleting jobs of %s: %w", fileID, err)
	}
	return nil
}

func scanJob(row rowScanner) (*domain.IngestJob, error) {
	var (
		job                  domain.IngestJob
		status               string
		errMsg               sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&job.ID, &job.FileID, &status, &job.Progress, &errMsg, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	job.Error = errMsg.String
	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updatedAt)
	return &job, nil
}
