package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
)

// Ensure stores implement the interfaces.
var (
	_ driven.JobStore      = (*JobStore)(nil)
	_ driven.RegistryStore = (*RegistryStore)(nil)
)

// JobStore is an in-memory implementation of driven.JobStore.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.IngestJob
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]domain.IngestJob)}
}

// SaveJob creates or updates a job.
func (s *JobStore) SaveJob(_ context.Context, job *domain.IngestJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

// GetJob retrieves a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (*domain.IngestJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// LatestForFile returns the most recently created job of a file.
func (s *JobStore) LatestForFile(_ context.Context, fileID string) (*domain.IngestJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.IngestJob
	for _, job := range s.jobs {
		if job.FileID != fileID {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			j := job
			latest = &j
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

// DeleteForFile removes every job of a file.
func (s *JobStore) DeleteForFile(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if job.FileID == fileID {
			delete(s.jobs, id)
		}
	}
	return nil
}

// RegistryStore is an in-memory implementation of driven.RegistryStore.
type RegistryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.RegistryEntry
}

// NewRegistryStore creates a new in-memory registry store.
func NewRegistryStore() *RegistryStore {
	return &RegistryStore{entries: make(map[string]domain.RegistryEntry)}
}

// Get returns the entry of a file.
func (s *RegistryStore) Get(_ context.Context, fileID string) (*domain.RegistryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

// Put creates or replaces the entry of a file.
func (s *RegistryStore) Put(_ context.Context, entry *domain.RegistryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.FileID] = *entry
	return nil
}

// List returns every entry ordered by file ID.
func (s *RegistryStore) List(_ context.Context) ([]domain.RegistryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RegistryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileID < out[j].FileID })
	return out, nil
}
