package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

func TestFilesList(t *testing.T) {
	entries := []domain.FileEntry{
		{ID: "f_abc12345", Name: "report.pdf", UploadTime: 1700000000.5, PageCount: 12, Status: domain.FileStatusReady},
		{ID: "f_def67890", Name: "draft.pdf", Status: domain.FileStatusUploaded},
	}

	t.Run("table", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.files.entries = entries

		out, err := execute(t, "", "files", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "f_abc12345")
		assert.Contains(t, out, "report.pdf")
		assert.Contains(t, out, "uploaded")
	})

	t.Run("json", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.files.entries = entries

		out, err := execute(t, "", "files", "list", "--json")
		require.NoError(t, err)

		var got []domain.FileEntry
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, entries, got)
	})

	t.Run("empty", func(t *testing.T) {
		setupTestServices(t)

		out, err := execute(t, "", "files", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "No files uploaded.")
	})
}

func TestFilesDelete(t *testing.T) {
	t.Run("deletes", func(t *testing.T) {
		ts := setupTestServices(t)

		out, err := execute(t, "", "files", "delete", "f_abc12345")
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted f_abc12345")
		assert.Equal(t, []string{"f_abc12345"}, ts.files.deleted)
	})

	t.Run("alias and error", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.files.err = domain.ErrNotFound

		_, err := execute(t, "", "files", "rm", "f_nope0000")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestFilesAdd(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "paper.pdf")
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(txt, []byte("text"), 0o644))

	t.Run("uploads and ingests", func(t *testing.T) {
		ts := setupTestServices(t)

		out, err := execute(t, "", "files", "add", pdf)
		require.NoError(t, err)
		assert.Equal(t, []string{"paper.pdf"}, ts.ingest.uploaded)
		assert.Equal(t, []string{"f_test0001"}, ts.ingest.ingested)
		assert.Contains(t, out, "Uploaded paper.pdf as f_test0001 (3 pages)")
		assert.Contains(t, out, "Indexed f_test0001: 7 chunks")
	})

	t.Run("no index", func(t *testing.T) {
		ts := setupTestServices(t)

		_, err := execute(t, "", "files", "add", "--no-index", pdf)
		require.NoError(t, err)
		assert.Len(t, ts.ingest.uploaded, 1)
		assert.Empty(t, ts.ingest.ingested)
	})

	t.Run("bad inputs are counted", func(t *testing.T) {
		ts := setupTestServices(t)

		out, err := execute(t, "", "files", "add", txt, filepath.Join(dir, "missing.pdf"), pdf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 of 3 file(s) failed")
		assert.Contains(t, out, "not a PDF")
		assert.Equal(t, []string{"paper.pdf"}, ts.ingest.uploaded)
	})
}
