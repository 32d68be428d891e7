package domain

import "time"

// JobStatus is the state of an ingestion job.
type JobStatus string

// Job states. A job moves parsing -> indexing -> ready, or to error.
const (
	JobStatusIdle     JobStatus = "idle"
	JobStatusParsing  JobStatus = "parsing"
	JobStatusIndexing JobStatus = "indexing"
	JobStatusReady    JobStatus = "ready"
	JobStatusError    JobStatus = "error"
)

// IsTerminal reports whether the job has finished.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusReady || s == JobStatusError
}

// Progress checkpoints reported while a parse job runs.
const (
	ProgressStarted  = 5
	ProgressParsing  = 20
	ProgressIndexing = 60
	ProgressDone     = 100
)

// IngestJob is the progress record of a background parse-and-index job.
// Only the job's own goroutine advances it.
type IngestJob struct {
	ID        string    `json:"jobId"`
	FileID    string    `json:"fileId"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Error     string    `json:"errorMsg,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RegistryStatus is the outcome recorded by batch ingestion.
type RegistryStatus string

const (
	RegistryIndexed     RegistryStatus = "indexed"
	RegistryFailedParse RegistryStatus = "failed_parse"
	RegistryFailedIndex RegistryStatus = "failed_index"
)

// RegistryEntry records what batch ingestion did with one source file.
type RegistryEntry struct {
	FileID       string
	OriginalName string
	SourcePath   string
	Status       RegistryStatus
	Error        string
	Chunks       int
	LastUpdate   time.Time
}

// IndexResult reports a successful index build for one file.
type IndexResult struct {
	FileID    string `json:"fileId"`
	Chunks    int    `json:"chunks"`
	IndexPath string `json:"index_path"`
}

// BatchReport summarises one batch ingestion run.
type BatchReport struct {
	Scanned int
	Indexed int
	Skipped int
	Failed  int
}
