// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentParser: Splits a PDF into typed elements and extracts images
//   - Chunker: Cuts a page-annotated body into page-tagged chunks
//   - EmbeddingService: Turns text into vectors
//   - VectorStore: Persistent nearest-neighbour index (chromem or pgvector)
//   - LLMService: Grading and answer generation
//   - FileStore: Per-document work directories
//   - JobStore, RegistryStore: Ingestion bookkeeping
//   - SessionStore: Conversation history
//   - ConfigStore, PromptStore: Configuration and prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ImageCaptioner: Without it, images are rendered without analysis.
//   - SchedulerStore: Without it, periodic inbox ingestion is disabled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
