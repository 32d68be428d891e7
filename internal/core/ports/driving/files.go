package driving

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// FileService manages the document workspace.
type FileService interface {
	// List returns every stored file, newest upload first, repairing
	// incomplete metadata records on the way.
	List(ctx context.Context) ([]domain.FileEntry, error)

	// Delete removes a file and tombstones its chunks.
	Delete(ctx context.Context, fileID string) error

	// PageImages returns the image names of one page ordered by image index.
	PageImages(ctx context.Context, fileID string, page int) ([]string, error)

	// ImagePath resolves an image name inside the file's images directory.
	ImagePath(ctx context.Context, fileID, name string) (string, error)

	// RenderPage rasterises one page of the original PDF to PNG.
	RenderPage(ctx context.Context, fileID string, page int) ([]byte, error)
}
