// Package sqlite keeps ingestion bookkeeping in a single SQLite database
// using modernc.org/sqlite, which needs no cgo:
//
//   - JobStore: parse job progress polled by the status endpoint
//   - RegistryStore: the batch ingestion ledger
//   - SchedulerStore: scheduled task state and run history
//
// The schema is applied from the embedded migrations on open. The database
// runs in WAL mode so readers do not block the job goroutines.
package sqlite
