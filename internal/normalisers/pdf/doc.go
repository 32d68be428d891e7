// Package pdf renders parsed PDF elements into the page-annotated markdown
// body. Every page transition is marked with <!-- PAGE_BREAK: n --> and
// extracted images are placed on their page with any caption beneath.
package pdf
