// Package html flattens HTML fragments into readable text. Parsers emit
// tables as HTML; this package turns them into pipe-separated rows so the
// chunker sees one line per table row.
package html
