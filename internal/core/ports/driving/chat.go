package driving

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// ChatService answers questions over the indexed corpus.
type ChatService interface {
	// Chat retrieves context for req and streams the answer through emit.
	// Every event of the stream is delivered through emit; the returned
	// error only reports why the stream stopped early.
	Chat(ctx context.Context, req domain.ChatRequest, emit func(domain.Event) error) error

	// Query answers without streaming and without touching session history.
	Query(ctx context.Context, question, fileID string) (*domain.Answer, error)

	// ClearSession drops the history of a session.
	ClearSession(ctx context.Context, sessionID string) error
}
