package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChat_RequiresChatService(t *testing.T) {
	ts := setupTestServices(t)
	ts.app.Chat = nil

	_, err := execute(t, "", "chat")
	assert.EqualError(t, err, "chat service not configured")
}

func TestChat_Flags(t *testing.T) {
	assert.NotNil(t, chatCmd.Flags().Lookup("session"))
	assert.NotNil(t, chatCmd.Flags().Lookup("file"))
}
