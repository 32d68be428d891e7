// Package chunker provides a page-aware recursive text chunker.
//
// The input body carries <!-- PAGE_BREAK: n --> markers. Text is first cut
// into per-page buffers and each buffer is then split recursively on a list
// of separators, so every chunk belongs to exactly one page.
package chunker

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 50

// DefaultSeparators are tried in order, coarsest first.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

var pageBreak = regexp.MustCompile(`<!--\s*PAGE_BREAK:\s*(\d+)\s*-->`)

// Verify interface compliance at compile time.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits document content into page-tagged chunks.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator list.
func WithSeparators(seps ...string) Option {
	return func(p *Processor) {
		if len(seps) > 0 {
			p.separators = seps
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits the document body into trimmed, non-empty chunks tagged
// with the document identity and the page they were cut from.
func (p *Processor) Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrEmptyDocument
	}

	var chunks []domain.Chunk
	for _, pg := range SplitPages(doc.Content) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, text := range p.SplitText(pg.Text) {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				ID:         uuid.New().String(),
				SourceID:   doc.ID,
				SourceName: doc.Title,
				Page:       pg.Number,
				Content:    text,
				Position:   len(chunks),
			})
		}
	}

	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	logger.Debug("chunker: %s produced %d chunks", doc.ID, len(chunks))
	return chunks, nil
}

// Page is the text between two page markers.
type Page struct {
	Number int
	Text   string
}

// SplitPages cuts a page-annotated body into per-page buffers.
// Text before the first marker belongs to page 1 and page numbers below 1
// are clamped to 1.
func SplitPages(body string) []Page {
	locs := pageBreak.FindAllStringSubmatchIndex(body, -1)
	if len(locs) == 0 {
		return []Page{{Number: 1, Text: body}}
	}

	pages := make([]Page, 0, len(locs)+1)
	if head := body[:locs[0][0]]; strings.TrimSpace(head) != "" {
		pages = append(pages, Page{Number: 1, Text: head})
	}

	for i, loc := range locs {
		n, err := strconv.Atoi(body[loc[2]:loc[3]])
		if err != nil || n < 1 {
			n = 1
		}
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		pages = append(pages, Page{Number: n, Text: body[loc[1]:end]})
	}
	return pages
}

// SplitText recursively splits text into pieces of at most chunkSize runes
// where the separators allow it.
func (p *Processor) SplitText(text string) []string {
	return p.split(text, p.separators)
}

func (p *Processor) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, s := range seps {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeep(text, sep) {
		if runeLen(piece) < p.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, p.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, p.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, p.merge(good)...)
	}
	return final
}

// merge joins small pieces into chunks up to chunkSize, carrying up to
// overlap runes of trailing pieces into the next chunk. Separators were
// kept on the pieces, so pieces are concatenated directly.
func (p *Processor) merge(pieces []string) []string {
	var docs, current []string
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > p.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeep splits on sep and keeps the separator at the start of every
// piece but the first. An empty sep splits into runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = sep + part
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
