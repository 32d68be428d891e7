package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	t.Run("creates database in nested directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		store, err := NewStore(dir)
		require.NoError(t, err)
		defer store.Close()

		assert.Equal(t, filepath.Join(dir, DBFileName), store.Path())
		assert.FileExists(t, store.Path())
	})

	t.Run("reopening keeps data and skips applied migrations", func(t *testing.T) {
		dir := t.TempDir()
		ctx := context.Background()

		first, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, first.RegistryStore().Put(ctx, &domain.RegistryEntry{
			FileID: "f_abcdef12", OriginalName: "a.pdf", SourcePath: "/in/a.pdf",
			Status: domain.RegistryIndexed, Chunks: 3, LastUpdate: time.Now(),
		}))
		require.NoError(t, first.Close())

		second, err := NewStore(dir)
		require.NoError(t, err)
		defer second.Close()

		entry, err := second.RegistryStore().Get(ctx, "f_abcdef12")
		require.NoError(t, err)
		assert.Equal(t, 3, entry.Chunks)

		var versions int
		require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
		assert.Equal(t, 1, versions)
	})
}

func TestTimeRoundTripOrdering(t *testing.T) {
	whole := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	frac := whole.Add(100 * time.Millisecond)

	assert.Less(t, formatTime(whole), formatTime(frac))
	assert.True(t, parseTime(formatTime(frac)).Equal(frac))
	assert.True(t, parseTime("garbage").IsZero())
}

func TestJobStore(t *testing.T) {
	ctx := context.Background()
	jobs := newTestStore(t).JobStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("get missing job", func(t *testing.T) {
		_, err := jobs.GetJob(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("rejects job without id", func(t *testing.T) {
		assert.ErrorIs(t, jobs.SaveJob(ctx, &domain.IngestJob{}), domain.ErrInvalidInput)
		assert.ErrorIs(t, jobs.SaveJob(ctx, nil), domain.ErrInvalidInput)
	})

	t.Run("save then update", func(t *testing.T) {
		job := &domain.IngestJob{
			ID: "job-1", FileID: "f_11111111", Status: domain.JobStatusParsing,
			Progress: domain.ProgressStarted, CreatedAt: base, UpdatedAt: base,
		}
		require.NoError(t, jobs.SaveJob(ctx, job))

		job.Status = domain.JobStatusError
		job.Progress = 0
		job.Error = "boom"
		job.UpdatedAt = base.Add(time.Second)
		require.NoError(t, jobs.SaveJob(ctx, job))

		got, err := jobs.GetJob(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusError, got.Status)
		assert.Equal(t, 0, got.Progress)
		assert.Equal(t, "boom", got.Error)
		assert.True(t, got.CreatedAt.Equal(base))
		assert.True(t, got.UpdatedAt.Equal(base.Add(time.Second)))
	})

	t.Run("latest for file", func(t *testing.T) {
		for i, id := range []string{"job-a", "job-b", "job-c"} {
			at := base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, jobs.SaveJob(ctx, &domain.IngestJob{
				ID: id, FileID: "f_22222222", Status: domain.JobStatusReady,
				Progress: domain.ProgressDone, CreatedAt: at, UpdatedAt: at,
			}))
		}

		got, err := jobs.LatestForFile(ctx, "f_22222222")
		require.NoError(t, err)
		assert.Equal(t, "job-c", got.ID)

		_, err = jobs.LatestForFile(ctx, "f_99999999")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete for file", func(t *testing.T) {
		require.NoError(t, jobs.DeleteForFile(ctx, "f_22222222"))
		_, err := jobs.LatestForFile(ctx, "f_22222222")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = jobs.GetJob(ctx, "job-1")
		assert.NoError(t, err)
	})
}

func TestRegistryStore(t *testing.T) {
	ctx := context.Background()
	registry := newTestStore(t).RegistryStore()
	now := time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)

	t.Run("empty list", func(t *testing.T) {
		entries, err := registry.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := registry.Get(ctx, "f_00000000")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("put replaces and list is ordered", func(t *testing.T) {
		require.NoError(t, registry.Put(ctx, &domain.RegistryEntry{
			FileID: "f_bbbbbbbb", OriginalName: "b.pdf", SourcePath: "/in/b.pdf",
			Status: domain.RegistryFailedParse, Error: "bad pdf", LastUpdate: now,
		}))
		require.NoError(t, registry.Put(ctx, &domain.RegistryEntry{
			FileID: "f_aaaaaaaa", OriginalName: "a.pdf", SourcePath: "/in/a.pdf",
			Status: domain.RegistryIndexed, Chunks: 7, LastUpdate: now,
		}))
		require.NoError(t, registry.Put(ctx, &domain.RegistryEntry{
			FileID: "f_bbbbbbbb", OriginalName: "b.pdf", SourcePath: "/in/b.pdf",
			Status: domain.RegistryIndexed, Chunks: 2, LastUpdate: now.Add(time.Hour),
		}))

		entries, err := registry.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "f_aaaaaaaa", entries[0].FileID)
		assert.Equal(t, "f_bbbbbbbb", entries[1].FileID)
		assert.Equal(t, domain.RegistryIndexed, entries[1].Status)
		assert.Empty(t, entries[1].Error)
		assert.Equal(t, 2, entries[1].Chunks)
		assert.True(t, entries[1].LastUpdate.Equal(now.Add(time.Hour)))
	})

	t.Run("rejects entry without file id", func(t *testing.T) {
		assert.ErrorIs(t, registry.Put(ctx, &domain.RegistryEntry{}), domain.ErrInvalidInput)
	})
}
