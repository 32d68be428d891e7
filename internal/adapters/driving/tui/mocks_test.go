package tui

import (
	"context"
	"sync"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
)

var _ driving.ChatService = (*mockChat)(nil)

type mockChat struct {
	mu       sync.Mutex
	events   []domain.Event
	err      error
	clearErr error
	requests []domain.ChatRequest
	cleared  []string
}

func (m *mockChat) Chat(_ context.Context, req domain.ChatRequest, emit func(domain.Event) error) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	for _, ev := range m.events {
		if err := emit(ev); err != nil {
			return err
		}
	}
	return m.err
}

func (m *mockChat) Query(context.Context, string, string) (*domain.Answer, error) {
	return &domain.Answer{}, nil
}

func (m *mockChat) ClearSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, sessionID)
	return m.clearErr
}
