// Package domain defines the core business entities for Sea-RAG.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A page-tagged unit of indexed text
//   - Citation: A retrieval hit surfaced to the caller
//   - Event: The tagged union streamed by the answer generator
//   - IngestJob: Progress of a background parse-and-index job
//   - FileMeta: The per-document metadata record
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
