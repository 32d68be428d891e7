package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

func TestMCP_RequiresSearch(t *testing.T) {
	ts := setupTestServices(t)
	ts.app.Search = nil
	ts.app.AIErr = domain.ErrEmbeddingUnavailable

	_, err := execute(t, "", "mcp")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestMCP_Flags(t *testing.T) {
	flag := mcpCmd.Flags().Lookup("port")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "p", flag.Shorthand)
		assert.Equal(t, "0", flag.DefValue)
	}
}
