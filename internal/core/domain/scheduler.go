package domain

import "time"

// TaskIDInboxIngest is the periodic batch ingestion of the inbox directory.
const TaskIDInboxIngest = "inbox-ingest"

// ScheduledTask is the persisted state of a recurring task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	// NextRun is zero until the task is first scheduled; a zero NextRun
	// is due immediately.
	NextRun time.Time

	LastRun     time.Time
	LastSuccess time.Time

	// LastError is the failure of the most recent run, empty after a
	// successful one.
	LastError string
}

// TaskResult records one run of a task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// Report holds the batch counters of an inbox ingestion run.
	Report BatchReport
}

// SchedulerConfig is resolved from settings at startup.
type SchedulerConfig struct {
	// Enabled gates every task. The inbox watcher is also off when false.
	Enabled bool

	TaskConfigs map[string]TaskConfig
}

// TaskConfig enables one task and sets its interval.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the zero TaskConfig for unknown tasks.
func (c SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig rescans the inbox every 15 minutes.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDInboxIngest: {
				Enabled:  true,
				Interval: 15 * time.Minute,
			},
		},
	}
}
