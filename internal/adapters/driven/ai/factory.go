// Package ai builds the AI and vector adapters selected by the settings.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/sea-rag/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/sea-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sea-rag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/sea-rag/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/sea-rag/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/sea-rag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sea-rag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sea-rag/internal/adapters/driven/vectorstore/chromem"
	"github.com/custodia-labs/sea-rag/internal/adapters/driven/vectorstore/pgvector"
	openaivlm "github.com/custodia-labs/sea-rag/internal/adapters/driven/vlm/openai"
	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// embeddingRequestsPerSecond throttles cloud embedding calls during ingest.
const embeddingRequestsPerSecond = 10

// InitResult holds the adapters built by Init.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Captioner        driven.ImageCaptioner
	VectorStore      driven.VectorStore
	Warnings         []string // Non-fatal issues, such as a missing VLM key.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		_ = r.EmbeddingService.Close()
	}
	if r.VectorStore != nil {
		_ = r.VectorStore.Close()
	}
	if r.LLMService != nil {
		_ = r.LLMService.Close()
	}
}

// Init builds every adapter the question-answering core needs. Embedding,
// LLM and vector store failures are fatal; the captioner degrades to
// placeholder captions. Connectivity is not checked here so the server can
// start while a provider is briefly down.
func Init(ctx context.Context, settings *domain.AppSettings, indexDir string, prompts driven.PromptStore) (*InitResult, error) {
	logger.Section("AI Services")
	result := &InitResult{}

	embed, err := CreateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if embed == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	result.EmbeddingService = embed
	logger.Debug("embedding: %s/%s", settings.Embedding.Provider, embed.ModelName())

	llm, err := CreateLLMService(ctx, &settings.LLM)
	if err != nil {
		result.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if llm == nil {
		result.Close()
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrLLMUnavailable, settings.LLM.Provider)
	}
	result.LLMService = llm
	logger.Debug("llm: %s/%s", settings.LLM.Provider, llm.ModelName())

	result.Captioner = CreateCaptioner(&settings.VLM, prompts)
	if settings.VLM.APIKey == "" {
		result.Warnings = append(result.Warnings, "no VLM API key configured; images get placeholder captions")
	}

	store, err := CreateVectorStore(ctx, &settings.Vector, indexDir)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.VectorStore = store
	logger.Debug("vector store: %s", settings.Vector.Backend)

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sea-rag settings show' to check the configuration",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sea-rag settings show' to check the configuration",
			domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the embedding service for the configured
// provider. Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			RequestsPerSecond: embeddingRequestsPerSecond,
		})

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:   settings.APIKey,
			Model:    settings.Model,
			Endpoint: settings.BaseURL,
		})

	default:
		return nil, fmt.Errorf("%s embeddings: %w", settings.Provider, domain.ErrUnsupportedProvider)
	}
}

// CreateLLMService creates the LLM service for the configured provider.
// Returns nil if the provider is not configured.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	temperature := settings.Temperature

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL:     settings.BaseURL,
			Model:       settings.Model,
			Temperature: &temperature,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:      settings.APIKey,
			BaseURL:     settings.BaseURL,
			Model:       settings.Model,
			Temperature: &temperature,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:      settings.APIKey,
			BaseURL:     settings.BaseURL,
			Model:       settings.Model,
			Temperature: &temperature,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey:      settings.APIKey,
			Model:       settings.Model,
			Endpoint:    settings.BaseURL,
			Temperature: &temperature,
		})

	default:
		return nil, fmt.Errorf("%s: %w", settings.Provider, domain.ErrUnsupportedProvider)
	}
}

// CreateCaptioner creates the vision captioner. It always succeeds; without
// a key the captioner returns placeholder captions.
func CreateCaptioner(settings *domain.VLMSettings, prompts driven.PromptStore) driven.ImageCaptioner {
	return openaivlm.NewCaptioner(openaivlm.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		MaxRetries:        settings.MaxRetries,
		RetryBase:         settings.RetryBase,
		RequestsPerSecond: settings.RequestsPerSecond,
		Prompts:           prompts,
	})
}

// CreateVectorStore opens the configured vector backend and loads any
// persisted index. indexDir is used by the chromem backend only.
func CreateVectorStore(ctx context.Context, settings *domain.VectorSettings, indexDir string) (driven.VectorStore, error) {
	var (
		store driven.VectorStore
		err   error
	)
	switch settings.Backend {
	case domain.VectorBackendChromem, "":
		store, err = chromem.New(indexDir)
	case domain.VectorBackendPgvector:
		store, err = pgvector.New(ctx, settings.DSN)
	default:
		return nil, fmt.Errorf("vector backend %q: %w", settings.Backend, domain.ErrUnsupportedProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s vector store: %w", settings.Backend, err)
	}

	found, err := store.Load(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load vector index: %w", err)
	}
	logger.Debug("vector index loaded: %v", found)
	return store, nil
}

// ValidateEmbeddingConfig creates the embedding service and pings it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, settings)
	if err != nil || svc == nil {
		return err
	}
	return svc.Close()
}

// ValidateLLMConfig creates the LLM service and pings it.
func ValidateLLMConfig(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateAndValidateLLMService(ctx, settings)
	if err != nil || svc == nil {
		return err
	}
	return svc.Close()
}
