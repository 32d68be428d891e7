package driven

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// FileStore manages the per-file work directories under the data root.
type FileStore interface {
	// SaveOriginal writes the uploaded PDF and returns its path.
	SaveOriginal(ctx context.Context, fileID string, content []byte) (string, error)

	// ImportOriginal copies a PDF from disk into the work directory.
	ImportOriginal(ctx context.Context, fileID, srcPath string) (string, error)

	// OriginalPath returns the stored PDF path. It does not check existence.
	OriginalPath(fileID string) string

	// ImagesDir returns the images directory, creating it if needed.
	ImagesDir(fileID string) (string, error)

	// ResolveImage joins name onto the images directory and rejects
	// results that escape it with domain.ErrForbiddenPath.
	// Returns domain.ErrNotFound when the image does not exist.
	ResolveImage(fileID, name string) (string, error)

	// ListImages returns the file names in the images directory.
	// A missing directory yields an empty list.
	ListImages(fileID string) ([]string, error)

	// WriteMarkdown stores the page-annotated body.
	WriteMarkdown(ctx context.Context, fileID, body string) error

	// ReadMarkdown loads the page-annotated body.
	// Returns domain.ErrNotFound when the file has not been parsed.
	ReadMarkdown(ctx context.Context, fileID string) (string, error)

	// HasMarkdown reports whether the file has been parsed.
	HasMarkdown(fileID string) bool

	// SaveMeta writes the metadata record atomically, preserving unknown keys.
	SaveMeta(ctx context.Context, meta domain.FileMeta) error

	// LoadMeta reads the metadata record.
	// Returns domain.ErrNotFound when there is none.
	LoadMeta(ctx context.Context, fileID string) (*domain.FileMeta, error)

	// ListFileIDs returns the work directory names, excluding the index directory.
	ListFileIDs(ctx context.Context) ([]string, error)

	// ModTime returns the work directory's modification time as unix seconds.
	ModTime(fileID string) (float64, error)

	// Size returns the stored PDF size in bytes.
	Size(fileID string) (int64, error)

	// Exists reports whether a work directory exists.
	Exists(fileID string) bool

	// Delete removes the work directory.
	// Returns domain.ErrNotFound when it does not exist.
	Delete(ctx context.Context, fileID string) error

	// ListSourcePDFs returns the *.pdf files directly inside dir, sorted.
	ListSourcePDFs(dir string) ([]string, error)

	// IndexDir returns the directory holding the persisted vector index.
	IndexDir() string
}
