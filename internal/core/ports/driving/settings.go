package driving

import "github.com/custodia-labs/sea-rag/internal/core/domain"

// SettingsService reads and changes the persisted settings.
type SettingsService interface {
	// Get resolves every setting from the config file, the environment
	// and the defaults, in that order.
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error

	// Set changes one dotted config key, parsing value for its type.
	Set(key, value string) error

	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate reports providers that cannot work as configured. It does
	// not contact them.
	Validate() error

	// ValidateEmbeddingConfig and ValidateLLMConfig ping the provider.
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error

	// ConfigPath is the file settings are saved to.
	ConfigPath() string
}
