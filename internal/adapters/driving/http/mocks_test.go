package http

import (
	"context"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

type mockChat struct {
	events    []domain.Event
	chatErr   error
	lastChat  domain.ChatRequest
	cleared   string
	answer    *domain.Answer
	queryErr  error
	lastQuery string
}

func (m *mockChat) Chat(_ context.Context, req domain.ChatRequest, emit func(domain.Event) error) error {
	m.lastChat = req
	if m.chatErr != nil {
		return m.chatErr
	}
	for _, e := range m.events {
		if err := emit(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockChat) Query(_ context.Context, question, _ string) (*domain.Answer, error) {
	m.lastQuery = question
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.answer, nil
}

func (m *mockChat) ClearSession(_ context.Context, sessionID string) error {
	m.cleared = sessionID
	return nil
}

type mockIngest struct {
	uploadName    string
	uploadContent []byte
	meta          *domain.FileMeta
	job           *domain.IngestJob
	startErr      error
	statusErr     error
	indexResult   *domain.IndexResult
	indexErr      error
}

func (m *mockIngest) Upload(_ context.Context, filename string, content []byte) (*domain.FileMeta, error) {
	m.uploadName = filename
	m.uploadContent = content
	return m.meta, nil
}

func (m *mockIngest) StartParse(_ context.Context, _ string) (*domain.IngestJob, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	return m.job, nil
}

func (m *mockIngest) Status(_ context.Context, _ string) (*domain.IngestJob, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.job, nil
}

func (m *mockIngest) Parse(_ context.Context, _ string) error { return nil }

func (m *mockIngest) BuildIndex(_ context.Context, _ string) (*domain.IndexResult, error) {
	return m.indexResult, m.indexErr
}

func (m *mockIngest) Ingest(_ context.Context, _ string) (*domain.IndexResult, error) {
	return m.indexResult, m.indexErr
}

func (m *mockIngest) Wait() {}

type mockFiles struct {
	files     []domain.FileEntry
	deleteErr error
	images    []string
	imagePath string
	imageErr  error
	png       []byte
	renderErr error
}

func (m *mockFiles) List(_ context.Context) ([]domain.FileEntry, error) { return m.files, nil }

func (m *mockFiles) Delete(_ context.Context, _ string) error { return m.deleteErr }

func (m *mockFiles) PageImages(_ context.Context, _ string, _ int) ([]string, error) {
	return m.images, nil
}

func (m *mockFiles) ImagePath(_ context.Context, _, _ string) (string, error) {
	return m.imagePath, m.imageErr
}

func (m *mockFiles) RenderPage(_ context.Context, _ string, _ int) ([]byte, error) {
	return m.png, m.renderErr
}

type mockSearch struct {
	hits   []domain.ScoredChunk
	err    error
	k      int
	filter domain.SearchFilter
}

func (m *mockSearch) Search(_ context.Context, _ string, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	m.k = k
	m.filter = filter
	return m.hits, m.err
}
