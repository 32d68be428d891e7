package driven

import "github.com/custodia-labs/sea-rag/internal/core/domain"

// AIConfigValidator checks provider settings by building a client and
// pinging it. Settings for an unconfigured provider pass, so the check can
// run before the user has chosen one.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error
}
