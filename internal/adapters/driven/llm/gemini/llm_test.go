package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
)

func TestSplitConversation(t *testing.T) {
	system, history, last, err := splitConversation([]driven.ChatMessage{
		{Role: "system", Content: "rules"},
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "q2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "rules", system)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("q2")}, last)
}

func TestSplitConversation_MustEndWithUser(t *testing.T) {
	_, _, _, err := splitConversation([]driven.ChatMessage{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, _, err = splitConversation(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("a"), genai.Text("b")}}},
		{Content: nil},
	}}
	assert.Equal(t, "ab", responseText(resp))
	assert.Empty(t, responseText(nil))
}
