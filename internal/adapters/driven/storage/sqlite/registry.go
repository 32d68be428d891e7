package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
)

var _ driven.RegistryStore = (*registryStore)(nil)

// registryStore implements driven.RegistryStore.
type registryStore struct {
	db *sql.DB
}

const registryColumns = "file_id, original_name, source_path, status, error, chunks, last_update"

// Get returns the entry of a file.
func (s *registryStore) Get(ctx context.Context, fileID string) (*domain.RegistryEntry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+registryColumns+" FROM ingest_registry WHERE file_id = ?", fileID)
	entry, err := scanRegistryEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return entry, err
}

// Put creates or replaces the entry of a file.
func (s *registryStore) Put(ctx context.Context, entry *domain.RegistryEntry) error {
	if entry == nil || entry.FileID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO ingest_registry (`+registryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.FileID, entry.OriginalName, entry.SourcePath, string(entry.Status),
		nullString(entry.Error), entry.Chunks, formatTime(entry.LastUpdate))
	if err != nil {
		return fmt.Errorf("saving registry entry %s: %w", entry.FileID, err)
	}
	return nil
}

// List returns every entry ordered by file ID.
func (s *registryStore) List(ctx context.Context) ([]domain.RegistryEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+registryColumns+" FROM ingest_registry ORDER BY file_id")
	if err != nil {
		return nil, fmt.Errorf("querying registry: %w", err)
	}
	defer rows.Close()

	entries := []domain.RegistryEntry{}
	for rows.Next() {
		entry, err := scanRegistryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating registry: %w", err)
	}
	return entries, nil
}

// scanRegistryEntry returns sql.ErrNoRows unwrapped so Get can map it.
func scanRegistryEntry(row rowScanner) (*domain.RegistryEntry, error) {
	var (
		entry      domain.RegistryEntry
		status     string
		errMsg     sql.NullString
		lastUpdate string
	)
	err := row.Scan(&entry.FileID, &entry.OriginalName, &entry.SourcePath, &status, &errMsg, &entry.Chunks, &lastUpdate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning registry entry: %w", err)
	}

	entry.Status = domain.RegistryStatus(status)
	entry.Error = errMsg.String
	entry.LastUpdate = parseTime(lastUpdate)
	return &entry, nil
}
