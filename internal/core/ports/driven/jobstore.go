package driven

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// JobStore persists ingestion job progress.
// Each job has a single writer, the goroutine running it.
type JobStore interface {
	// SaveJob creates or updates a job.
	SaveJob(ctx context.Context, job *domain.IngestJob) error

	// GetJob retrieves a job by ID. Returns domain.ErrNotFound if missing.
	GetJob(ctx context.Context, jobID string) (*domain.IngestJob, error)

	// LatestForFile returns the most recently created job of a file.
	// Returns domain.ErrNotFound if the file has no job.
	LatestForFile(ctx context.Context, fileID string) (*domain.IngestJob, error)

	// DeleteForFile removes every job of a file.
	DeleteForFile(ctx context.Context, fileID string) error
}

// RegistryStore persists the batch ingestion ledger.
type RegistryStore interface {
	// Get returns the entry of a file. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, fileID string) (*domain.RegistryEntry, error)

	// Put creates or replaces the entry of a file.
	Put(ctx context.Context, entry *domain.RegistryEntry) error

	// List returns every entry ordered by file ID.
	List(ctx context.Context) ([]domain.RegistryEntry, error)
}

// SessionStore holds per-session conversation history.
type SessionStore interface {
	// AppendTurns adds turns to the end of a session in one step, creating
	// the session if needed. Turns appended together stay adjacent.
	AppendTurns(ctx context.Context, sessionID string, turns ...domain.Turn) error

	// Get returns a copy of a session's turns, oldest first.
	// Unknown sessions yield an empty slice.
	Get(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// Clear removes a session. Clearing an unknown session is not an error.
	Clear(ctx context.Context, sessionID string) error
}
