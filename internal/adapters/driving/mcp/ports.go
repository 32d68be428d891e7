package mcp

import (
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server exposes.
type Ports struct {
	// Search backs the search tool. Required.
	Search driving.SearchService

	// Chat backs the ask tool. Optional; without it the tool is not offered.
	Chat driving.ChatService

	// Files backs the file resources. Optional.
	Files driving.FileService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
