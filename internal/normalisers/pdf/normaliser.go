package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser renders parsed PDFs to markdown.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "pdf"
}

// Normalise renders the parsed document.
func (n *Normaliser) Normalise(ctx context.Context, parsed *domain.ParsedDocument) (string, error) {
	if parsed == nil {
		return "", domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Render(parsed), nil
}

// PageBreak formats the marker that opens a page.
func PageBreak(page int) string {
	return fmt.Sprintf("\n<!-- PAGE_BREAK: %d -->\n", page)
}

// Render lays out the elements in order. When an element starts a new page,
// markers and images are emitted for every page skipped since the last one.
// Images never referenced by an Image element are flushed at the end.
func Render(parsed *domain.ParsedDocument) string {
	r := &renderer{
		images:   parsed.ImagesByPage(),
		inserted: make(map[string]bool),
	}

	last := 0
	for _, el := range parsed.Elements {
		if el.Page > last {
			for p := last + 1; p < el.Page; p++ {
				r.add(PageBreak(p))
				r.pageImages(p)
			}
			r.add(PageBreak(el.Page))
			last = el.Page
		}

		text := strings.TrimSpace(el.Text)
		if text == "" && el.Category != domain.CategoryImage {
			continue
		}

		switch el.Category {
		case domain.CategoryTitle:
			r.add("# " + text + "\n")
		case domain.CategoryHeader:
			r.add("## " + text + "\n")
		case domain.CategoryTable:
			if el.HTML != "" {
				r.add(html.Table(el.HTML) + "\n")
			} else {
				r.add(text + "\n")
			}
		case domain.CategoryImage:
			if el.Page > 0 {
				r.pageImages(el.Page)
			}
		case domain.CategoryPageBreak:
			// Page transitions come from element pages.
		default:
			r.add(text + "\n")
		}
	}

	maxPage := 0
	for p := range r.images {
		if p > maxPage {
			maxPage = p
		}
	}
	start := last
	if start == 0 {
		start = 1
	}
	for p := start; p <= maxPage; p++ {
		if p > last {
			r.add(PageBreak(p))
		}
		r.pageImages(p)
	}

	return strings.Join(r.lines, "\n")
}

type renderer struct {
	lines    []string
	images   map[int][]domain.ExtractedImage
	inserted map[string]bool
}

func (r *renderer) add(line string) {
	r.lines = append(r.lines, line)
}

// pageImages inserts the page's images that are not yet placed.
func (r *renderer) pageImages(page int) {
	for _, img := range r.images[page] {
		if r.inserted[img.Name] {
			continue
		}
		r.add(fmt.Sprintf("\n![Image](./images/%s)\n", img.Name))
		if img.Caption != "" {
			r.add(fmt.Sprintf("> **Image analysis**: %s\n", img.Caption))
		}
		r.inserted[img.Name] = true
	}
}
