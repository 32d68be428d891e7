package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
)

var (
	_ driving.ChatService     = (*mockChat)(nil)
	_ driving.IngestService   = (*mockIngest)(nil)
	_ driving.BatchService    = (*mockBatch)(nil)
	_ driving.FileService     = (*mockFiles)(nil)
	_ driving.SearchService   = (*mockSearch)(nil)
	_ driving.SettingsService = (*mockSettings)(nil)
)

type mockChat struct {
	events   []domain.Event
	err      error
	answer   *domain.Answer
	requests []domain.ChatRequest
	queries  []string
}

func (m *mockChat) Chat(_ context.Context, req domain.ChatRequest, emit func(domain.Event) error) error {
	m.requests = append(m.requests, req)
	for _, ev := range m.events {
		if err := emit(ev); err != nil {
			return err
		}
	}
	return m.err
}

func (m *mockChat) Query(_ context.Context, question, _ string) (*domain.Answer, error) {
	m.queries = append(m.queries, question)
	if m.err != nil {
		return nil, m.err
	}
	if m.answer == nil {
		return &domain.Answer{}, nil
	}
	return m.answer, nil
}

func (m *mockChat) ClearSession(context.Context, string) error { return nil }

type mockIngest struct {
	uploaded []string
	ingested []string
	built    []string
	err      error
}

func (m *mockIngest) Upload(_ context.Context, filename string, _ []byte) (*domain.FileMeta, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.uploaded = append(m.uploaded, filename)
	return &domain.FileMeta{ID: "f_test0001", OriginalFilename: filename, PageCount: 3}, nil
}

func (m *mockIngest) StartParse(_ context.Context, fileID string) (*domain.IngestJob, error) {
	return &domain.IngestJob{ID: "j_test0001", FileID: fileID, Status: domain.JobStatusParsing}, nil
}

func (m *mockIngest) Status(context.Context, string) (*domain.IngestJob, error) {
	return nil, domain.ErrNotFound
}

func (m *mockIngest) Parse(context.Context, string) error { return m.err }

func (m *mockIngest) BuildIndex(_ context.Context, fileID string) (*domain.IndexResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.built = append(m.built, fileID)
	return &domain.IndexResult{FileID: fileID, Chunks: 12, IndexPath: "data/global_index"}, nil
}

func (m *mockIngest) Ingest(_ context.Context, fileID string) (*domain.IndexResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.ingested = append(m.ingested, fileID)
	return &domain.IndexResult{FileID: fileID, Chunks: 7}, nil
}

func (m *mockIngest) Wait() {}

type mockBatch struct {
	report *domain.BatchReport
	err    error
	dir    string
	force  bool
}

func (m *mockBatch) Run(_ context.Context, sourceDir string, force bool) (*domain.BatchReport, error) {
	m.dir, m.force = sourceDir, force
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &domain.BatchReport{}, nil
	}
	return m.report, nil
}

type mockFiles struct {
	entries []domain.FileEntry
	deleted []string
	err     error
}

func (m *mockFiles) List(context.Context) ([]domain.FileEntry, error) {
	return m.entries, m.err
}

func (m *mockFiles) Delete(_ context.Context, fileID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, fileID)
	return nil
}

func (m *mockFiles) PageImages(context.Context, string, int) ([]string, error) { return nil, nil }

func (m *mockFiles) ImagePath(context.Context, string, string) (string, error) { return "", nil }

func (m *mockFiles) RenderPage(context.Context, string, int) ([]byte, error) { return nil, nil }

type mockSearch struct {
	results []domain.ScoredChunk
	err     error
	query   string
	k       int
	filter  domain.SearchFilter
}

func (m *mockSearch) Search(_ context.Context, query string, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	m.query, m.k, m.filter = query, k, filter
	return m.results, m.err
}

type mockSettings struct {
	settings    domain.AppSettings
	set         map[string]string
	validateErr error
	llm         []string
	embedding   []string
}

func newMockSettings() *mockSettings {
	return &mockSettings{settings: domain.DefaultAppSettings(), set: map[string]string{}}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettings) Set(key, value string) error {
	m.set[key] = value
	return nil
}

func (m *mockSettings) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.embedding = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettings) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.llm = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettings) Validate() error                { return m.validateErr }
func (m *mockSettings) ConfigPath() string             { return "/tmp/sea-rag/config.toml" }
func (m *mockSettings) ValidateEmbeddingConfig() error { return m.validateErr }
func (m *mockSettings) ValidateLLMConfig() error       { return m.validateErr }

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	chat     *mockChat
	ingest   *mockIngest
	batch    *mockBatch
	files    *mockFiles
	search   *mockSearch
	settings *mockSettings
	app      *App
}

// setupTestServices installs an App backed by mocks and resets command
// flags, restoring the previous state when the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	ts := &testServices{
		chat:     &mockChat{},
		ingest:   &mockIngest{},
		batch:    &mockBatch{},
		files:    &mockFiles{},
		search:   &mockSearch{},
		settings: newMockSettings(),
	}
	ts.app = &App{
		Settings: ts.settings,
		Chat:     ts.chat,
		Ingest:   ts.ingest,
		Batch:    ts.batch,
		Files:    ts.files,
		Search:   ts.search,
		Server:   domain.DefaultAppSettings().Server,
		Inbox:    "raw_pdf_ingestion",
	}

	prevApp, prevBootstrap := app, bootstrap
	app, bootstrap = ts.app, nil
	resetFlags()
	t.Cleanup(func() {
		app, bootstrap = prevApp, prevBootstrap
		resetFlags()
	})
	return ts
}

func resetFlags() {
	verbose, configPath, logFormat = false, "", "console"
	askFileID, askSession, askNoStream = "", "", false
	searchFileID, searchK, searchJSON = "", defaultSearchK, false
	ingestSource, ingestForce = "", false
	filesJSON, filesNoIndex = false, false
	chatSession, chatFileID = "", ""
	serveAddr, serveNoWatch, serveNoScheduler = "", false, false
	mcpPort = 0
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	var in io.Reader = strings.NewReader(stdin)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
