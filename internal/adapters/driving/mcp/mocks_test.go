package mcp

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

type mockSearchService struct {
	hits   []domain.ScoredChunk
	err    error
	k      int
	filter domain.SearchFilter
}

func (m *mockSearchService) Search(_ context.Context, _ string, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	m.k = k
	m.filter = filter
	return m.hits, m.err
}

type mockChatService struct {
	answer *domain.Answer
	err    error
	fileID string
}

func (m *mockChatService) Chat(_ context.Context, _ domain.ChatRequest, _ func(domain.Event) error) error {
	return m.err
}

func (m *mockChatService) Query(_ context.Context, _, fileID string) (*domain.Answer, error) {
	m.fileID = fileID
	return m.answer, m.err
}

func (m *mockChatService) ClearSession(_ context.Context, _ string) error { return nil }

type mockFileService struct {
	files  []domain.FileEntry
	images []string
	err    error
	page   int
}

func (m *mockFileService) List(_ context.Context) ([]domain.FileEntry, error) {
	return m.files, m.err
}

func (m *mockFileService) Delete(_ context.Context, _ string) error { return m.err }

func (m *mockFileService) PageImages(_ context.Context, _ string, page int) ([]string, error) {
	m.page = page
	return m.images, m.err
}

func (m *mockFileService) ImagePath(_ context.Context, _, _ string) (string, error) {
	return "", m.err
}

func (m *mockFileService) RenderPage(_ context.Context, _ string, _ int) ([]byte, error) {
	return nil, m.err
}
