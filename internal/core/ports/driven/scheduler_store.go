package driven

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// SchedulerStore keeps task state across restarts so an interval survives
// a crash, and keeps a bounded run history.
type SchedulerStore interface {
	// GetTask returns nil and no error for an unknown task.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask upserts by ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns the newest runs first; limit <= 0 returns all.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps the newest keep runs of every task.
	PruneHistory(ctx context.Context, keep int) error
}
