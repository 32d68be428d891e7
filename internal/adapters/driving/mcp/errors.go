// Package mcp serves the document index to AI assistants over the Model
// Context Protocol: a search tool, an ask tool and a files resource.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
