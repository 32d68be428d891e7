package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

// Results kept per task after each run.
const historyRetention = 100

const inboxTaskName = "Inbox Ingest"

// Scheduler ingests the inbox on an interval and on demand. Runs of the
// same task never overlap; task state and results go to the store so the
// schedule survives restarts.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	batch    driving.BatchService
	inboxDir string
	tick     time.Duration

	mu      sync.Mutex
	running bool
	busy    map[string]bool
	stopCh  chan struct{}
	trigger chan struct{}
	wg      sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often due tasks are checked. Default one minute.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// NewScheduler returns a scheduler that batch-ingests inboxDir.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	batch driving.BatchService,
	inboxDir string,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		config:   config,
		store:    store,
		batch:    batch,
		inboxDir: inboxDir,
		tick:     time.Minute,
		busy:     make(map[string]bool),
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the loop until ctx is cancelled or Stop is called. Calling it
// while already running is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	if _, err := s.syncTask(ctx); err != nil {
		logger.Warn("scheduler: syncing inbox task: %v", err)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	if s.config.Enabled {
		s.runDue(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-stop:
			return nil
		case <-s.trigger:
			s.runNow(ctx)
		case <-ticker.C:
			if s.config.Enabled {
				s.runDue(ctx)
			}
		}
	}
}

// Stop ends the loop and waits for in-flight runs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Trigger asks for an inbox run as soon as possible. Requests made while
// one is pending collapse into it.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// syncTask makes the stored inbox task match the configuration. A changed
// interval reschedules the next run from now.
func (s *Scheduler) syncTask(ctx context.Context) (*domain.ScheduledTask, error) {
	cfg := s.config.GetTaskConfig(domain.TaskIDInboxIngest)

	task, err := s.store.GetTask(ctx, domain.TaskIDInboxIngest)
	if err != nil {
		return nil, err
	}
	switch {
	case task == nil:
		task = s.inboxTask()
		task.NextRun = time.Now().Add(cfg.Interval)
	case task.Interval != cfg.Interval:
		task.Interval = cfg.Interval
		task.NextRun = time.Now().Add(cfg.Interval)
	}
	task.Enabled = cfg.Enabled

	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Scheduler) inboxTask() *domain.ScheduledTask {
	cfg := s.config.GetTaskConfig(domain.TaskIDInboxIngest)
	return &domain.ScheduledTask{
		ID:       domain.TaskIDInboxIngest,
		Name:     inboxTaskName,
		Interval: cfg.Interval,
		Enabled:  cfg.Enabled,
	}
}

// runDue dispatches every enabled task whose next run has passed.
func (s *Scheduler) runDue(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: listing tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if task.Enabled && !task.NextRun.After(now) {
			s.dispatch(ctx, task)
		}
	}
}

// runNow dispatches the inbox task regardless of its schedule.
func (s *Scheduler) runNow(ctx context.Context) {
	task, err := s.store.GetTask(ctx, domain.TaskIDInboxIngest)
	if err != nil {
		logger.Warn("scheduler: loading inbox task: %v", err)
		return
	}
	if task == nil {
		task = s.inboxTask()
	}
	s.dispatch(ctx, task)
}

// dispatch runs task in the background unless a run of it is in flight.
func (s *Scheduler) dispatch(ctx context.Context, task *domain.ScheduledTask) {
	if task.ID != domain.TaskIDInboxIngest {
		logger.Warn("scheduler: unknown task %q", task.ID)
		return
	}

	s.mu.Lock()
	if s.busy[task.ID] {
		s.mu.Unlock()
		logger.Debug("scheduler: %s already running", task.ID)
		return
	}
	s.busy[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.busy, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{TaskID: task.ID, StartedAt: time.Now()}
		report, err := s.ingestInbox(ctx)
		result.EndedAt = time.Now()
		result.Report = report

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)
		if err != nil {
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		s.record(context.WithoutCancel(ctx), task, result)
	}()
}

// record persists the outcome of a run. Failures are logged only.
func (s *Scheduler) record(ctx context.Context, task *domain.ScheduledTask, result *domain.TaskResult) {
	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: saving task %s: %v", task.ID, err)
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		logger.Warn("scheduler: recording result for %s: %v", task.ID, err)
	}
	if err := s.store.PruneHistory(ctx, historyRetention); err != nil {
		logger.Warn("scheduler: pruning history: %v", err)
	}
}

// ingestInbox batch-ingests new PDFs from the inbox. Failed files make the
// run fail, but the report is still returned.
func (s *Scheduler) ingestInbox(ctx context.Context) (domain.BatchReport, error) {
	if s.batch == nil || s.inboxDir == "" {
		return domain.BatchReport{}, nil
	}

	report, err := s.batch.Run(ctx, s.inboxDir, false)
	if err != nil {
		return domain.BatchReport{}, err
	}
	logger.Debug("scheduler: inbox run indexed %d of %d", report.Indexed, report.Scanned)
	if report.Failed > 0 {
		return *report, fmt.Errorf("%d of %d inbox files failed", report.Failed, report.Scanned)
	}
	return *report, nil
}
