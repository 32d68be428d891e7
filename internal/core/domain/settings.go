package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI API or any OpenAI-compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// APIKeyEnv returns the environment variable conventionally holding the key.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case AIProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI-compatible (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend selects the vector store implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendChromem is the embedded, file-persisted store.
	VectorBackendChromem VectorBackend = "chromem"

	// VectorBackendPgvector is PostgreSQL with the pgvector extension.
	VectorBackendPgvector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	return b == VectorBackendChromem || b == VectorBackendPgvector
}

// DataSettings locates on-disk state.
type DataSettings struct {
	// Root holds one work directory per file plus the global index.
	Root string

	// Inbox is scanned by batch ingestion.
	Inbox string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty selects the provider default.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// APIKeyEnv names the environment variable read when APIKey is unset.
	APIKeyEnv string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint. Empty selects the provider default.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// APIKeyEnv names the environment variable read when APIKey is unset.
	APIKeyEnv string

	// Temperature is used for answers. The grader always uses 0.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VLMSettings configures the image captioner.
type VLMSettings struct {
	Model     string
	BaseURL   string
	APIKey    string
	APIKeyEnv string

	// MaxRetries bounds retries after the first attempt.
	MaxRetries int

	// RetryBase is the first backoff; attempt n waits RetryBase * 2^n.
	RetryBase time.Duration

	// RequestsPerSecond throttles caption calls. 0 disables throttling.
	RequestsPerSecond float64
}

// RetrievalSettings tunes the confidence gate.
type RetrievalSettings struct {
	K            int
	TauTop1      float64
	TauMean3     float64
	SnippetChars int
}

// ChunkerSettings tunes the page-aware chunker.
type ChunkerSettings struct {
	Size    int
	Overlap int
}

// ChatSettings tunes the chat surface.
type ChatSettings struct {
	// MaxHistoryTurns caps stored turns per session. 0 means unbounded.
	MaxHistoryTurns int
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr        string
	CORSOrigins []string
}

// VectorSettings selects and configures the vector store.
type VectorSettings struct {
	Backend VectorBackend

	// DSN is the PostgreSQL connection string for the pgvector backend.
	DSN string
}

// SchedulerSettings configures periodic inbox ingestion.
type SchedulerSettings struct {
	// InboxInterval is how often the inbox is rescanned. 0 disables it.
	InboxInterval time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Data      DataSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	VLM       VLMSettings
	Retrieval RetrievalSettings
	Chunker   ChunkerSettings
	Chat      ChatSettings
	Server    ServerSettings
	Vector    VectorSettings
	Scheduler SchedulerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The defaults target an OpenAI-compatible endpoint; keys come from the
// environment or the config file.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Data: DataSettings{
			Root:  "data",
			Inbox: "raw_pdf_ingestion",
		},
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOpenAI,
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       "deepseek-ai/DeepSeek-V3",
			BaseURL:     "https://api.siliconflow.cn/v1",
			APIKeyEnv:   "SILICONFLOW_API_KEY",
			Temperature: 0.3,
		},
		VLM: VLMSettings{
			Model:             "deepseek-ai/deepseek-vl2",
			BaseURL:           "https://api.siliconflow.cn/v1",
			APIKeyEnv:         "SILICONFLOW_API_KEY",
			MaxRetries:        3,
			RetryBase:         2 * time.Second,
			RequestsPerSecond: 2,
		},
		Retrieval: RetrievalSettings{
			K:            5,
			TauTop1:      0.50,
			TauMean3:     0.65,
			SnippetChars: 500,
		},
		Chunker: ChunkerSettings{
			Size:    500,
			Overlap: 50,
		},
		Chat: ChatSettings{
			MaxHistoryTurns: 0,
		},
		Server: ServerSettings{
			Addr:        ":8000",
			CORSOrigins: []string{"*"},
		},
		Vector: VectorSettings{
			Backend: VectorBackendChromem,
		},
		Scheduler: SchedulerSettings{
			InboxInterval: 0,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		"bge-m3":            1024,
		// OpenAI-compatible models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		"BAAI/bge-small-zh-v1.5": 512,
		"BAAI/bge-m3":            1024,
		// Gemini models
		"text-embedding-004": 768,
	}
}
