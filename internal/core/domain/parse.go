package domain

// ElementCategory classifies a parsed document element.
type ElementCategory string

// Element categories emitted by the parser.
const (
	CategoryTitle     ElementCategory = "Title"
	CategoryHeader    ElementCategory = "Header"
	CategoryText      ElementCategory = "NarrativeText"
	CategoryListItem  ElementCategory = "ListItem"
	CategoryTable     ElementCategory = "Table"
	CategoryImage     ElementCategory = "Image"
	CategoryPageBreak ElementCategory = "PageBreak"
)

// Element is one typed segment of a parsed document.
type Element struct {
	Category ElementCategory `json:"category"`
	Text     string          `json:"text"`
	// Page is 1-based; 0 means unknown.
	Page int `json:"page"`
	// HTML holds the table markup for Table elements.
	HTML string `json:"html,omitempty"`
}

// ExtractedImage is an image pulled out of a page.
type ExtractedImage struct {
	Page  int
	Index int
	// Name follows the page{N}_img{M}.{ext} convention.
	Name string
	Path string
	// Caption is filled in by the image captioner.
	Caption string
}

// ParsedDocument is the output of the document parser.
type ParsedDocument struct {
	Elements  []Element
	Images    []ExtractedImage
	PageCount int
}

// ImagesByPage groups extracted images by page, preserving order.
func (d *ParsedDocument) ImagesByPage() map[int][]ExtractedImage {
	out := make(map[int][]ExtractedImage)
	for _, img := range d.Images {
		out[img.Page] = append(out[img.Page], img)
	}
	return out
}
