package driven

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// DocumentParser extracts typed elements and images from a PDF.
// Raw extraction is delegated to an external engine; adapters only
// translate its output into domain elements.
type DocumentParser interface {
	// Parse extracts elements in document order and writes every embedded
	// image into imagesDir as page{N}_img{M}.{ext}.
	Parse(ctx context.Context, pdfPath, imagesDir string) (*domain.ParsedDocument, error)

	// PageCount returns the number of pages of the PDF.
	PageCount(pdfPath string) (int, error)

	// RenderPage rasterises one 1-based page to PNG.
	// Returns domain.ErrPageOutOfRange for pages beyond the document.
	RenderPage(ctx context.Context, pdfPath string, page int, dpi float64) ([]byte, error)
}

// ImageCaptioner describes images with a vision-language model.
type ImageCaptioner interface {
	// Caption returns a description of the image. It never fails: after
	// exhausting retries it returns a placeholder caption instead.
	Caption(ctx context.Context, imagePath string) string
}
