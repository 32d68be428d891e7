package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// Verify interface compliance.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService answers questions by retrieving context and streaming a
// generated answer.
type ChatService struct {
	retriever *Retriever
	generator *Generator
	sessions  driven.SessionStore
}

// NewChatService creates a chat service.
func NewChatService(retriever *Retriever, generator *Generator, sessions driven.SessionStore) *ChatService {
	return &ChatService{
		retriever: retriever,
		generator: generator,
		sessions:  sessions,
	}
}

// Chat answers one message of a conversation, emitting the event stream.
func (s *ChatService) Chat(ctx context.Context, req domain.ChatRequest, emit func(domain.Event) error) error {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return fmt.Errorf("empty message: %w", domain.ErrInvalidInput)
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}

	retrieval := s.retriever.Retrieve(ctx, message, req.FileID)
	logger.Debug("Session: %s, decision: %s, branch: %s", sessionID, retrieval.Decision, retrieval.Branch())

	return s.generator.Stream(ctx, domain.AnswerRequest{
		Question:    message,
		Citations:   retrieval.Citations,
		ContextText: retrieval.ContextText,
		Branch:      retrieval.Branch(),
		SessionID:   sessionID,
	}, emit)
}

// Query answers a single question without touching any session history.
func (s *ChatService) Query(ctx context.Context, question, fileID string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}

	retrieval := s.retriever.Retrieve(ctx, question, fileID)
	return s.generator.Answer(ctx, domain.AnswerRequest{
		Question:    question,
		Citations:   retrieval.Citations,
		ContextText: retrieval.ContextText,
		Branch:      retrieval.Branch(),
	})
}

// ClearSession drops the history of a session. An empty id clears the
// default session.
func (s *ChatService) ClearSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clearing session %s: %w", sessionID, err)
	}
	return nil
}
