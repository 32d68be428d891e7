// Package fitz implements the document parser on MuPDF through go-fitz.
// Each page is exported as HTML and split into typed elements; embedded
// images arrive as data URIs and are written next to the document.
package fitz

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	gofitz "github.com/gen2brain/go-fitz"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/logger"
	"github.com/custodia-labs/sea-rag/internal/normalisers/html"
)

// Ensure Parser implements the interface.
var _ driven.DocumentParser = (*Parser)(nil)

var (
	blockPattern = regexp.MustCompile(
		`(?is)<img\b[^>]*>|<table\b.*?</table>|<h[1-6]\b[^>]*>.*?</h[1-6]>|<li\b[^>]*>.*?</li>|<p\b[^>]*>.*?</p>`)
	openTagPattern  = regexp.MustCompile(`^<([a-zA-Z0-9]+)[^>]*>`)
	closeTagPattern = regexp.MustCompile(`</[a-zA-Z0-9]+>$`)
	imgPattern      = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	dataURIPattern  = regexp.MustCompile(`(?is)src\s*=\s*["']data:image/([a-z+.-]+);base64,([^"']+)["']`)
)

// Parser opens a fresh MuPDF document per call; documents are not shared
// between goroutines.
type Parser struct{}

// New creates a parser.
func New() *Parser {
	return &Parser{}
}

// Parse extracts elements page by page and writes embedded images into
// imagesDir as page{N}_img{M}.{ext}.
func (p *Parser) Parse(ctx context.Context, pdfPath, imagesDir string) (*domain.ParsedDocument, error) {
	doc, err := gofitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}

	parsed := &domain.ParsedDocument{PageCount: doc.NumPage()}
	logger.Debug("parsing %s: %d pages", filepath.Base(pdfPath), parsed.PageCount)

	for i := 0; i < parsed.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := i + 1

		markup, err := doc.HTML(i, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		elements, images := pageElements(page, markup)
		saved, err := saveImages(images, imagesDir)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		parsed.Elements = append(parsed.Elements, elements...)
		parsed.Images = append(parsed.Images, saved...)
	}

	return parsed, nil
}

// PageCount returns the number of pages of the PDF.
func (p *Parser) PageCount(pdfPath string) (int, error) {
	doc, err := gofitz.New(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// RenderPage rasterises a 1-based page to PNG at dpi.
func (p *Parser) RenderPage(ctx context.Context, pdfPath string, page int, dpi float64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := gofitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, fmt.Errorf("page %d of %d: %w", page, doc.NumPage(), domain.ErrPageOutOfRange)
	}

	png, err := doc.ImagePNG(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return png, nil
}

// pageImage is an embedded image decoded from a data URI, not yet saved.
type pageImage struct {
	page  int
	index int
	ext   string
	data  []byte
}

// pageElements splits one page of MuPDF HTML into elements in document
// order. Every image becomes an Image element and a pageImage.
func pageElements(page int, markup string) ([]domain.Element, []pageImage) {
	var (
		elements []domain.Element
		images   []pageImage
	)

	addImage := func(tag string) {
		img, ok := decodeImage(tag)
		if !ok {
			return
		}
		img.page = page
		img.index = len(images) + 1
		images = append(images, img)
		elements = append(elements, domain.Element{Category: domain.CategoryImage, Page: page})
	}

	for _, block := range blockPattern.FindAllString(markup, -1) {
		tag := strings.ToLower(openTagPattern.FindStringSubmatch(block)[1])
		switch tag {
		case "img":
			addImage(block)
			continue
		case "table":
			if text := html.Text(block); text != "" {
				elements = append(elements, domain.Element{Category: domain.CategoryTable, Text: text, Page: page, HTML: block})
			}
			continue
		}

		inner := closeTagPattern.ReplaceAllString(openTagPattern.ReplaceAllString(block, ""), "")
		for _, img := range imgPattern.FindAllString(inner, -1) {
			addImage(img)
		}
		text := strings.Join(strings.Fields(html.Text(imgPattern.ReplaceAllString(inner, ""))), " ")
		if text == "" {
			continue
		}
		elements = append(elements, domain.Element{Category: category(tag), Text: text, Page: page})
	}

	return elements, images
}

func category(tag string) domain.ElementCategory {
	switch tag {
	case "h1":
		return domain.CategoryTitle
	case "h2", "h3", "h4", "h5", "h6":
		return domain.CategoryHeader
	case "li":
		return domain.CategoryListItem
	default:
		return domain.CategoryText
	}
}

// decodeImage reads a base64 data URI from an <img> tag. Formats the image
// listing does not serve are skipped.
func decodeImage(tag string) (pageImage, bool) {
	m := dataURIPattern.FindStringSubmatch(tag)
	if m == nil {
		return pageImage{}, false
	}

	ext := strings.ToLower(m[1])
	switch ext {
	case "jpeg":
		ext = "jpg"
	case "png", "jpg", "gif", "webp":
	default:
		return pageImage{}, false
	}

	payload := strings.Join(strings.Fields(m[2]), "")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		logger.Debug("skipping undecodable image: %v", err)
		return pageImage{}, false
	}
	return pageImage{ext: ext, data: data}, true
}

func saveImages(images []pageImage, dir string) ([]domain.ExtractedImage, error) {
	out := make([]domain.ExtractedImage, 0, len(images))
	for _, img := range images {
		name := domain.ImageName(img.page, img.index, img.ext)
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, img.data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		out = append(out, domain.ExtractedImage{
			Page:  img.page,
			Index: img.index,
			Name:  name,
			Path:  path,
		})
	}
	return out, nil
}
