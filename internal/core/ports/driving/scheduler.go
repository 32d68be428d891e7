package driving

import "context"

// Scheduler runs periodic inbox ingestion in the background.
type Scheduler interface {
	// Start blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for in-flight runs to finish.
	Stop() error
}
