package driven

// ConfigStore holds settings under dotted keys such as "llm.model".
// Typed getters return the zero value for a missing key or a value of
// another type; the settings service treats both as unset.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set writes through to storage.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path locates the backing file, for display.
	Path() string
}
