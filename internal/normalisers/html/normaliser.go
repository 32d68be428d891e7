package html

import (
	"html"
	"regexp"
	"strings"
)

// Elements whose content is never text.
var dropped = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
	regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
	regexp.MustCompile(`(?s)<!--.*?-->`),
}

var (
	cellEnd    = regexp.MustCompile(`(?i)</t[dh]>`)
	blockOpen  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|table|blockquote|pre|caption)[^>]*>`)
	blockClose = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|thead|tbody|table|blockquote|pre|caption)>`)
	lineBreak  = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTag     = regexp.MustCompile(`<[^>]+>`)
	blanks     = regexp.MustCompile(`[ \t]+`)

	tableRow  = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	tableCell = regexp.MustCompile(`(?is)<t[dh][^>]*>(.*?)</t[dh]>`)
)

// Text converts an HTML fragment to plain text. Table cells are joined
// with " | " and each row ends up on its own line.
func Text(markup string) string {
	content := markup
	for _, re := range dropped {
		content = re.ReplaceAllString(content, "")
	}

	content = cellEnd.ReplaceAllString(content, " | ")
	content = blockOpen.ReplaceAllString(content, "\n")
	content = blockClose.ReplaceAllString(content, "\n")
	content = lineBreak.ReplaceAllString(content, "\n")
	content = anyTag.ReplaceAllString(content, "")

	content = html.UnescapeString(content)
	content = strings.ReplaceAll(content, "\u00a0", " ")
	content = blanks.ReplaceAllString(content, " ")

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "|"))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Table renders an HTML table as a markdown table whose first row is the
// header. Rows shorter than the widest are padded with empty cells. Markup
// without table rows falls back to Text.
func Table(markup string) string {
	var rows [][]string
	width := 0
	for _, row := range tableRow.FindAllStringSubmatch(markup, -1) {
		var cells []string
		for _, cell := range tableCell.FindAllStringSubmatch(row[1], -1) {
			text := strings.Join(strings.Fields(Text(cell[1])), " ")
			cells = append(cells, strings.ReplaceAll(text, "|", `\|`))
		}
		if len(cells) == 0 {
			continue
		}
		width = max(width, len(cells))
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return Text(markup)
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
