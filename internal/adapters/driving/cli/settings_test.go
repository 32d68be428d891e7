package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/services"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://rag:****@db:5432/rag", maskDSN("postgres://rag:secret@db:5432/rag"))
	assert.Equal(t, "postgres://rag@db/rag", maskDSN("postgres://rag@db/rag"))
	assert.Equal(t, "host=db", maskDSN("host=db"))
}

func TestSettingsShow(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.settings.settings.LLM.APIKey = "sk-1234567890abcdef"

		out, err := execute(t, "", "settings", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "Config file: /tmp/sea-rag/config.toml")
		assert.Contains(t, out, "[Retrieval]")
		assert.Contains(t, out, "K: 5")
		assert.Contains(t, out, "sk-1...cdef")
		assert.NotContains(t, out, "1234567890")
		assert.Contains(t, out, "reads $OPENAI_API_KEY")
		assert.Contains(t, out, "Inbox interval: off")
		assert.Contains(t, out, "Configuration is valid.")
	})

	t.Run("invalid warns", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.settings.validateErr = domain.ErrNotConfigured

		out, err := execute(t, "", "settings")
		require.NoError(t, err)
		assert.Contains(t, out, "Warning:")
	})
}

func TestSettingsSet(t *testing.T) {
	t.Run("key and value", func(t *testing.T) {
		ts := setupTestServices(t)

		out, err := execute(t, "", "settings", "set", "retrieval.k", "8")
		require.NoError(t, err)
		assert.Equal(t, "8", ts.settings.set["retrieval.k"])
		assert.Contains(t, out, "retrieval.k = 8")
	})

	t.Run("api key prompted", func(t *testing.T) {
		ts := setupTestServices(t)

		out, err := execute(t, "sk-abcdefghijklmnop\n", "settings", "set", "llm.api_key")
		require.NoError(t, err)
		assert.Equal(t, "sk-abcdefghijklmnop", ts.settings.set["llm.api_key"])
		assert.Contains(t, out, "sk-a...mnop")
		assert.NotContains(t, out, "abcdefghijkl")
	})

	t.Run("missing value", func(t *testing.T) {
		setupTestServices(t)

		_, err := execute(t, "", "settings", "set", "llm.model")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty prompted value", func(t *testing.T) {
		setupTestServices(t)

		_, err := execute(t, "\n", "settings", "set", "vlm.api_key")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestSettingsKeys(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "settings", "keys")
	require.NoError(t, err)
	for _, k := range services.SettableKeys() {
		assert.Contains(t, out, k)
	}
}

func TestSettingsLLM(t *testing.T) {
	t.Run("local provider", func(t *testing.T) {
		ts := setupTestServices(t)

		// Choice 1 is ollama; empty model keeps the default.
		out, err := execute(t, "1\n\n", "settings", "llm")
		require.NoError(t, err)
		assert.Equal(t, []string{"ollama", "llama3.2", ""}, ts.settings.llm)
		assert.Contains(t, out, "Validating configuration... OK")
	})

	t.Run("cloud provider reads key", func(t *testing.T) {
		ts := setupTestServices(t)

		_, err := execute(t, "2\ngpt-4o\nsk-key-123456789\n", "settings", "llm")
		require.NoError(t, err)
		assert.Equal(t, []string{"openai", "gpt-4o", "sk-key-123456789"}, ts.settings.llm)
	})

	t.Run("validation failure", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.settings.validateErr = errors.New("unreachable")

		out, err := execute(t, "1\n\n", "settings", "llm")
		require.Error(t, err)
		assert.Contains(t, out, "FAILED: unreachable")
	})
}

func TestSettingsEmbedding(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, "3\n\nkey-abcdefgh123\n", "settings", "embedding")
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini", "text-embedding-004", "key-abcdefgh123"}, ts.settings.embedding)
}
