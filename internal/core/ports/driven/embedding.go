package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// The same model must be used at ingestion and query time; the index
// manager rejects vectors whose dimension differs from the index.
//
// Implementations may include:
//   - OpenAI and compatible endpoints (text-embedding-3-small, bge models)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Google Gemini (text-embedding-004)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// The result has one vector per input, in input order. Any failure fails the batch.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size, or 0 if unknown until first use.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
