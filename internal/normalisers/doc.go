// Package normalisers converts parser output into the markdown body that
// is stored as output.md and chunked for the index.
//
// The pdf normaliser lays out elements and captioned images page by page;
// the html normaliser flattens table markup into text.
package normalisers
