package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataRoot  = "data.root"
	keyDataInbox = "data.inbox"

	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedAPIKeyEnv = "embedding.api_key_env"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMAPIKeyEnv   = "llm.api_key_env"
	keyLLMTemperature = "llm.temperature"

	keyVLMModel      = "vlm.model"
	keyVLMBaseURL    = "vlm.base_url"
	keyVLMAPIKey     = "vlm.api_key"
	keyVLMAPIKeyEnv  = "vlm.api_key_env"
	keyVLMRetries    = "vlm.max_retries"
	keyVLMRetryBase  = "vlm.retry_base"
	keyVLMRateLimit  = "vlm.requests_per_second"
	keyRetrievalK    = "retrieval.k"
	keyTauTop1       = "retrieval.tau_top1"
	keyTauMean3      = "retrieval.tau_mean3"
	keySnippetChars  = "retrieval.snippet_chars"
	keyChunkSize     = "chunker.size"
	keyChunkOverlap  = "chunker.overlap"
	keyMaxHistory    = "chat.max_history_turns"
	keyServerAddr    = "server.addr"
	keyCORSOrigins   = "server.cors_origins"
	keyVectorBackend = "vector.backend"
	keyVectorDSN     = "vector.dsn"
	keyInboxInterval = "scheduler.inbox_interval"
	keySchedEnabled  = "scheduler.enabled"
)

// Environment variables consulted when the config file leaves a value unset.
const (
	envDataRoot       = "DATA_ROOT"
	envChatModel      = "CHAT_MODEL_NAME"
	envEmbeddingModel = "EMBEDDING_MODEL_NAME"
	envVLMModel       = "VLM_MODEL_NAME"
	envSiliconBaseURL = "SILICON_BASE_URL"
	envSiliconKeyAlt  = "SILICON_API_KEY"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindList
	kindProvider
	kindBackend
)

// settableKeys lists every key accepted by Set.
var settableKeys = map[string]valueKind{
	keyDataRoot:       kindString,
	keyDataInbox:      kindString,
	keyEmbedProvider:  kindProvider,
	keyEmbedModel:     kindString,
	keyEmbedBaseURL:   kindString,
	keyEmbedAPIKey:    kindString,
	keyEmbedAPIKeyEnv: kindString,
	keyLLMProvider:    kindProvider,
	keyLLMModel:       kindString,
	keyLLMBaseURL:     kindString,
	keyLLMAPIKey:      kindString,
	keyLLMAPIKeyEnv:   kindString,
	keyLLMTemperature: kindFloat,
	keyVLMModel:       kindString,
	keyVLMBaseURL:     kindString,
	keyVLMAPIKey:      kindString,
	keyVLMAPIKeyEnv:   kindString,
	keyVLMRetries:     kindInt,
	keyVLMRetryBase:   kindDuration,
	keyVLMRateLimit:   kindFloat,
	keyRetrievalK:     kindInt,
	keyTauTop1:        kindFloat,
	keyTauMean3:       kindFloat,
	keySnippetChars:   kindInt,
	keyChunkSize:      kindInt,
	keyChunkOverlap:   kindInt,
	keyMaxHistory:     kindInt,
	keyServerAddr:     kindString,
	keyCORSOrigins:    kindList,
	keyVectorBackend:  kindBackend,
	keyVectorDSN:      kindString,
	keyInboxInterval:  kindDuration,
	keySchedEnabled:   kindBool,
}

// SettableKeys returns the keys accepted by Set, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService manages application settings.
// Values come from the config file, then the environment, then defaults.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithEnv replaces the environment lookup.
func WithEnv(getenv func(string) string) SettingsOption {
	return func(s *SettingsService) {
		s.getenv = getenv
	}
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Data: domain.DataSettings{
			Root:  s.getString(keyDataRoot, s.envOr(envDataRoot, d.Data.Root)),
			Inbox: s.getString(keyDataInbox, d.Data.Inbox),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:     s.getString(keyEmbedModel, s.envOr(envEmbeddingModel, d.Embedding.Model)),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - empty selects the provider default
			APIKeyEnv: s.getString(keyEmbedAPIKeyEnv, d.Embedding.APIKeyEnv),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:       s.getString(keyLLMModel, s.envOr(envChatModel, d.LLM.Model)),
			BaseURL:     s.getExplicit(keyLLMBaseURL, s.envOr(envSiliconBaseURL, d.LLM.BaseURL)),
			APIKeyEnv:   s.getString(keyLLMAPIKeyEnv, d.LLM.APIKeyEnv),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
		},
		VLM: domain.VLMSettings{
			Model:             s.getString(keyVLMModel, s.envOr(envVLMModel, d.VLM.Model)),
			BaseURL:           s.getExplicit(keyVLMBaseURL, s.envOr(envSiliconBaseURL, d.VLM.BaseURL)),
			APIKeyEnv:         s.getString(keyVLMAPIKeyEnv, d.VLM.APIKeyEnv),
			MaxRetries:        s.getInt(keyVLMRetries, d.VLM.MaxRetries),
			RetryBase:         s.getDuration(keyVLMRetryBase, d.VLM.RetryBase),
			RequestsPerSecond: s.getFloat(keyVLMRateLimit, d.VLM.RequestsPerSecond),
		},
		Retrieval: domain.RetrievalSettings{
			K:            s.getInt(keyRetrievalK, d.Retrieval.K),
			TauTop1:      s.getFloat(keyTauTop1, d.Retrieval.TauTop1),
			TauMean3:     s.getFloat(keyTauMean3, d.Retrieval.TauMean3),
			SnippetChars: s.getInt(keySnippetChars, d.Retrieval.SnippetChars),
		},
		Chunker: domain.ChunkerSettings{
			Size:    s.getInt(keyChunkSize, d.Chunker.Size),
			Overlap: s.getInt(keyChunkOverlap, d.Chunker.Overlap),
		},
		Chat: domain.ChatSettings{
			MaxHistoryTurns: s.getInt(keyMaxHistory, d.Chat.MaxHistoryTurns),
		},
		Server: domain.ServerSettings{
			Addr:        s.getString(keyServerAddr, d.Server.Addr),
			CORSOrigins: s.getStrings(keyCORSOrigins, d.Server.CORSOrigins),
		},
		Vector: domain.VectorSettings{
			Backend: s.getBackend(d.Vector.Backend),
			DSN:     s.configStore.GetString(keyVectorDSN),
		},
		Scheduler: domain.SchedulerSettings{
			InboxInterval: s.getDuration(keyInboxInterval, d.Scheduler.InboxInterval),
		},
	}

	settings.Embedding.APIKey = s.apiKey(keyEmbedAPIKey, settings.Embedding.APIKeyEnv, settings.Embedding.Provider)
	settings.LLM.APIKey = s.apiKey(keyLLMAPIKey, settings.LLM.APIKeyEnv, settings.LLM.Provider)
	settings.VLM.APIKey = s.apiKey(keyVLMAPIKey, settings.VLM.APIKeyEnv, domain.AIProviderOpenAI)
	if settings.VLM.APIKey == "" {
		settings.VLM.APIKey = s.getenv(envSiliconKeyAlt)
	}

	return settings, nil
}

// apiKey resolves a key from the config file, the named variable, then the
// provider's conventional variable.
func (s *SettingsService) apiKey(key, envName string, provider domain.AIProvider) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	if envName != "" {
		if v := s.getenv(envName); v != "" {
			return v
		}
	}
	if conventional := provider.APIKeyEnv(); conventional != "" {
		return s.getenv(conventional)
	}
	return ""
}

// Save persists application settings. API keys are only written when set
// directly; keys resolved from the environment stay there.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{keyDataRoot, settings.Data.Root},
		{keyDataInbox, settings.Data.Inbox},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedAPIKeyEnv, settings.Embedding.APIKeyEnv},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMAPIKeyEnv, settings.LLM.APIKeyEnv},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyVLMModel, settings.VLM.Model},
		{keyVLMBaseURL, settings.VLM.BaseURL},
		{keyVLMAPIKeyEnv, settings.VLM.APIKeyEnv},
		{keyVLMRetries, settings.VLM.MaxRetries},
		{keyVLMRetryBase, settings.VLM.RetryBase.String()},
		{keyVLMRateLimit, settings.VLM.RequestsPerSecond},
		{keyRetrievalK, settings.Retrieval.K},
		{keyTauTop1, settings.Retrieval.TauTop1},
		{keyTauMean3, settings.Retrieval.TauMean3},
		{keySnippetChars, settings.Retrieval.SnippetChars},
		{keyChunkSize, settings.Chunker.Size},
		{keyChunkOverlap, settings.Chunker.Overlap},
		{keyMaxHistory, settings.Chat.MaxHistoryTurns},
		{keyServerAddr, settings.Server.Addr},
		{keyCORSOrigins, settings.Server.CORSOrigins},
		{keyVectorBackend, string(settings.Vector.Backend)},
		{keyVectorDSN, settings.Vector.DSN},
		{keyInboxInterval, settings.Scheduler.InboxInterval.String()},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := []struct {
		key, val string
		envs     []string
	}{
		{keyEmbedAPIKey, settings.Embedding.APIKey, []string{settings.Embedding.APIKeyEnv, settings.Embedding.Provider.APIKeyEnv()}},
		{keyLLMAPIKey, settings.LLM.APIKey, []string{settings.LLM.APIKeyEnv, settings.LLM.Provider.APIKeyEnv()}},
		{keyVLMAPIKey, settings.VLM.APIKey, []string{settings.VLM.APIKeyEnv, envSiliconKeyAlt}},
	}
	for _, sec := range secrets {
		if sec.val == "" || s.fromEnv(sec.val, sec.envs...) {
			continue
		}
		if err := s.configStore.Set(sec.key, sec.val); err != nil {
			return fmt.Errorf("save %s: %w", sec.key, err)
		}
	}

	return nil
}

// fromEnv reports whether val is the value of one of the named variables.
func (s *SettingsService) fromEnv(val string, names ...string) bool {
	for _, name := range names {
		if name != "" && s.getenv(name) == val {
			return true
		}
	}
	return false
}

// Set parses value according to the key and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	value = strings.TrimSpace(value)

	var parsed any
	switch kind {
	case kindString:
		parsed = value
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer: %w", key, domain.ErrInvalidInput)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%s must be a non-negative number: %w", key, domain.ErrInvalidInput)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false: %w", key, domain.ErrInvalidInput)
		}
		parsed = b
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("%s must be a duration such as 15m: %w", key, domain.ErrInvalidInput)
		}
		parsed = d.String()
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		parsed = items
	case kindProvider:
		p := domain.AIProvider(value)
		if !p.IsValid() {
			return fmt.Errorf("%s %q: %w", key, value, domain.ErrUnsupportedProvider)
		}
		if key == keyEmbedProvider && !supportsEmbeddings(p) {
			return fmt.Errorf("provider %s does not support embeddings: %w", p, domain.ErrUnsupportedProvider)
		}
		parsed = value
	case kindBackend:
		if !domain.VectorBackend(value).IsValid() {
			return fmt.Errorf("%s %q: %w", key, value, domain.ErrUnsupportedProvider)
		}
		parsed = value
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func supportsEmbeddings(p domain.AIProvider) bool {
	for _, ep := range domain.AllEmbeddingProviders() {
		if ep == p {
			return true
		}
	}
	return false
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !supportsEmbeddings(provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(provider.APIKeyEnv()) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey
	settings.Embedding.APIKeyEnv = provider.APIKeyEnv()

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(provider.APIKeyEnv()) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" || !strings.Contains(settings.LLM.BaseURL, "localhost") {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey
	settings.LLM.APIKeyEnv = provider.APIKeyEnv()

	return s.Save(settings)
}

// Validate checks that both AI providers are usable and the tuning values
// are in range.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured: %w", settings.Embedding.Provider, domain.ErrNotConfigured)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not configured: %w", settings.LLM.Provider, domain.ErrNotConfigured)
	}
	if settings.Chunker.Overlap >= settings.Chunker.Size {
		return fmt.Errorf("chunker overlap %d must be below size %d: %w",
			settings.Chunker.Overlap, settings.Chunker.Size, domain.ErrInvalidInput)
	}
	if settings.Vector.Backend == domain.VectorBackendPgvector && settings.Vector.DSN == "" {
		return fmt.Errorf("pgvector backend needs vector.dsn: %w", domain.ErrNotConfigured)
	}

	return nil
}

// ConfigPath returns the path of the backing config file.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// GetSchedulerConfig returns the scheduler configuration. Inbox ingestion
// is enabled only when scheduler.inbox_interval is positive.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()

	if _, exists := s.configStore.Get(keySchedEnabled); exists {
		cfg.Enabled = s.configStore.GetBool(keySchedEnabled)
	}

	interval := s.getDuration(keyInboxInterval, domain.DefaultAppSettings().Scheduler.InboxInterval)
	task := cfg.TaskConfigs[domain.TaskIDInboxIngest]
	task.Enabled = interval > 0
	if interval > 0 {
		task.Interval = interval
	}
	cfg.TaskConfigs[domain.TaskIDInboxIngest] = task

	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) envOr(name, defaultVal string) string {
	if v := s.getenv(name); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getExplicit honours a stored empty string, which selects the provider's
// own endpoint.
func (s *SettingsService) getExplicit(key, defaultVal string) string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetString(key)
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getStrings(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
