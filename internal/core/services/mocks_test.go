package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
)

// --- Mock implementations shared by the service tests ---

// mockEmbedder implements driven.EmbeddingService. Texts listed in vectors
// get that vector; anything else gets a unit vector of size dim.
type mockEmbedder struct {
	mu       sync.Mutex
	dim      int
	vectors  map[string][]float32
	err      error
	batchErr error
	batches  int
	embedded []string
}

func newMockEmbedder(dim int) *mockEmbedder {
	return &mockEmbedder{dim: dim, vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	v := make([]float32, m.dim)
	if m.dim > 0 {
		v[0] = 1
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
		m.embedded = append(m.embedded, t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return m.dim }
func (m *mockEmbedder) ModelName() string          { return "mock-embed" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

// mockVectorStore implements driven.VectorStore in memory. Query returns
// live chunks in insertion order, or the preset hits when set.
type mockVectorStore struct {
	mu         sync.Mutex
	chunks     []domain.Chunk
	tombstones map[string]bool
	dim        int
	loaded     bool
	loadErr    error
	addErr     error
	persistErr error
	persists   int
	saved      []domain.Chunk // contents at the last successful persist
	removed    []string
	hits       []domain.ScoredChunk
	lastK      int
	lastFilter domain.SearchFilter
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{tombstones: make(map[string]bool)}
}

// Load restores the contents of the last successful persist, if any.
func (m *mockVectorStore) Load(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return false, m.loadErr
	}
	if m.saved != nil {
		m.chunks = append([]domain.Chunk(nil), m.saved...)
		return true, nil
	}
	return m.loaded, nil
}

func (m *mockVectorStore) Replace(_ context.Context, sourceID string, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.dropSource(sourceID)
	delete(m.tombstones, sourceID)
	m.chunks = append(m.chunks, chunks...)
	if m.dim == 0 && len(chunks) > 0 {
		m.dim = len(chunks[0].Embedding)
	}
	return nil
}

func (m *mockVectorStore) Add(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	for _, c := range chunks {
		if m.tombstones[c.SourceID] {
			m.dropSource(c.SourceID)
			delete(m.tombstones, c.SourceID)
		}
	}
	m.chunks = append(m.chunks, chunks...)
	if m.dim == 0 && len(chunks) > 0 {
		m.dim = len(chunks[0].Embedding)
	}
	return nil
}

func (m *mockVectorStore) dropSource(sourceID string) {
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.SourceID != sourceID {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
}

func (m *mockVectorStore) Remove(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, ids...)
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if !drop[c.ID] {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	if len(m.chunks) == 0 {
		m.dim = 0
	}
	return nil
}

func (m *mockVectorStore) Query(_ context.Context, _ []float32, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastK = k
	m.lastFilter = filter
	if m.hits != nil {
		return m.hits, nil
	}
	var out []domain.ScoredChunk
	for _, c := range m.chunks {
		if m.tombstones[c.SourceID] {
			continue
		}
		if filter.SourceID != "" && c.SourceID != filter.SourceID {
			continue
		}
		c.Embedding = nil
		out = append(out, domain.ScoredChunk{Chunk: c, Score: float64(len(out)) * 0.1})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (m *mockVectorStore) Tombstone(_ context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tombstones[sourceID] = true
	return nil
}

func (m *mockVectorStore) Persist(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persists++
	if m.persistErr != nil {
		return m.persistErr
	}
	m.saved = append([]domain.Chunk{}, m.chunks...)
	return nil
}

func (m *mockVectorStore) Dimensions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dim
}

func (m *mockVectorStore) Stats() domain.IndexStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.IndexStats{Chunks: len(m.chunks), Dimensions: m.dim, Tombstones: len(m.tombstones), Path: "mock"}
}

func (m *mockVectorStore) Close() error { return nil }

func (m *mockVectorStore) chunkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}

// mockLLM implements driven.LLMService. ChatStream emits deltas and then
// returns streamErr; Chat returns reply or chatErr.
type mockLLM struct {
	mu        sync.Mutex
	deltas    []string
	streamErr error
	reply     string
	chatErr   error
	streams   int
	chats     int
	messages  [][]driven.ChatMessage
	options   []driven.ChatOptions
}

func (m *mockLLM) record(messages []driven.ChatMessage, opts driven.ChatOptions) {
	cp := make([]driven.ChatMessage, len(messages))
	copy(cp, messages)
	m.messages = append(m.messages, cp)
	m.options = append(m.options, opts)
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats++
	m.record(messages, opts)
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.reply, nil
}

func (m *mockLLM) ChatStream(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions, onDelta func(string) error) error {
	m.mu.Lock()
	m.streams++
	m.record(messages, opts)
	deltas := append([]string(nil), m.deltas...)
	streamErr := m.streamErr
	m.mu.Unlock()

	for _, d := range deltas {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return streamErr
}

func (m *mockLLM) lastMessages() []driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

func (m *mockLLM) ModelName() string          { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

// mockSearch implements driving.SearchService with fixed hits.
type mockSearch struct {
	hits       []domain.ScoredChunk
	err        error
	lastQuery  string
	lastK      int
	lastFilter domain.SearchFilter
}

func (m *mockSearch) Search(_ context.Context, query string, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	m.lastQuery, m.lastK, m.lastFilter = query, k, filter
	if m.err != nil {
		return nil, m.err
	}
	if len(m.hits) > k {
		return m.hits[:k], nil
	}
	return m.hits, nil
}

// mockPromptStore implements driven.PromptStore from a map.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (m *mockPromptStore) Reload() {}

// mockFileStore implements driven.FileStore in memory. Image paths are
// real files in dir so that callers can stat them.
type mockFileStore struct {
	mu        sync.Mutex
	dir       string
	originals map[string][]byte
	markdown  map[string]string
	metas     map[string]domain.FileMeta
	images    map[string][]string
	mtimes    map[string]float64
	sources   map[string][]string
	saveErr   error
	importErr error
}

func newMockFileStore(dir string) *mockFileStore {
	return &mockFileStore{
		dir:       dir,
		originals: make(map[string][]byte),
		markdown:  make(map[string]string),
		metas:     make(map[string]domain.FileMeta),
		images:    make(map[string][]string),
		mtimes:    make(map[string]float64),
		sources:   make(map[string][]string),
	}
}

func (m *mockFileStore) SaveOriginal(_ context.Context, fileID string, content []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.originals[fileID] = content
	return m.OriginalPath(fileID), nil
}

func (m *mockFileStore) ImportOriginal(_ context.Context, fileID, srcPath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.importErr != nil {
		return "", m.importErr
	}
	m.originals[fileID] = []byte("%PDF " + srcPath)
	return m.OriginalPath(fileID), nil
}

func (m *mockFileStore) OriginalPath(fileID string) string {
	return filepath.Join(m.dir, fileID, "original.pdf")
}

func (m *mockFileStore) ImagesDir(fileID string) (string, error) {
	return filepath.Join(m.dir, fileID, "images"), nil
}

func (m *mockFileStore) ResolveImage(fileID, name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", domain.ErrForbiddenPath
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.images[fileID] {
		if n == name {
			return filepath.Join(m.dir, fileID, "images", name), nil
		}
	}
	return "", domain.ErrNotFound
}

func (m *mockFileStore) ListImages(fileID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.images[fileID]...), nil
}

func (m *mockFileStore) WriteMarkdown(_ context.Context, fileID, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markdown[fileID] = body
	return nil
}

func (m *mockFileStore) ReadMarkdown(_ context.Context, fileID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.markdown[fileID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return body, nil
}

func (m *mockFileStore) HasMarkdown(fileID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.markdown[fileID]
	return ok
}

func (m *mockFileStore) SaveMeta(_ context.Context, meta domain.FileMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metas[meta.ID] = meta
	return nil
}

func (m *mockFileStore) LoadMeta(_ context.Context, fileID string) (*domain.FileMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.metas[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &meta, nil
}

func (m *mockFileStore) ListFileIDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	for id := range m.originals {
		seen[id] = true
	}
	for id := range m.metas {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockFileStore) ModTime(fileID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.mtimes[fileID]; ok {
		return t, nil
	}
	return 0, os.ErrNotExist
}

func (m *mockFileStore) Size(fileID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.originals[fileID]
	if !ok {
		return 0, os.ErrNotExist
	}
	return int64(len(content)), nil
}

func (m *mockFileStore) Exists(fileID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, hasPDF := m.originals[fileID]
	_, hasMeta := m.metas[fileID]
	return hasPDF || hasMeta
}

func (m *mockFileStore) Delete(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, hasPDF := m.originals[fileID]
	_, hasMeta := m.metas[fileID]
	if !hasPDF && !hasMeta {
		return domain.ErrNotFound
	}
	delete(m.originals, fileID)
	delete(m.metas, fileID)
	delete(m.markdown, fileID)
	delete(m.images, fileID)
	return nil
}

func (m *mockFileStore) ListSourcePDFs(dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths, ok := m.sources[dir]
	if !ok {
		return nil, os.ErrNotExist
	}
	return append([]string{}, paths...), nil
}

func (m *mockFileStore) IndexDir() string {
	return filepath.Join(m.dir, "global_index")
}

// mockParser implements driven.DocumentParser. Documents are keyed by the
// file id found in the PDF path.
type mockParser struct {
	mu       sync.Mutex
	docs     map[string]*domain.ParsedDocument
	pages    int
	parseErr map[string]error
	pageErr  error
	rendered []int
}

func newMockParser() *mockParser {
	return &mockParser{
		docs:     make(map[string]*domain.ParsedDocument),
		parseErr: make(map[string]error),
		pages:    2,
	}
}

func fileIDFromPath(pdfPath string) string {
	return filepath.Base(filepath.Dir(pdfPath))
}

func (m *mockParser) Parse(ctx context.Context, pdfPath, _ string) (*domain.ParsedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fileIDFromPath(pdfPath)
	if err := m.parseErr[id]; err != nil {
		return nil, err
	}
	if doc, ok := m.docs[id]; ok {
		cp := *doc
		cp.Images = append([]domain.ExtractedImage(nil), doc.Images...)
		return &cp, nil
	}
	return &domain.ParsedDocument{
		PageCount: 1,
		Elements:  []domain.Element{{Category: domain.CategoryText, Text: "Body of " + id, Page: 1}},
	}, nil
}

func (m *mockParser) PageCount(string) (int, error) {
	if m.pageErr != nil {
		return 0, m.pageErr
	}
	return m.pages, nil
}

func (m *mockParser) RenderPage(_ context.Context, _ string, page int, _ float64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if page > m.pages {
		return nil, domain.ErrPageOutOfRange
	}
	m.rendered = append(m.rendered, page)
	return []byte("\x89PNG"), nil
}

// mockCaptioner implements driven.ImageCaptioner.
type mockCaptioner struct {
	mu       sync.Mutex
	captions []string
}

func (m *mockCaptioner) Caption(_ context.Context, imagePath string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captions = append(m.captions, imagePath)
	return "caption of " + filepath.Base(imagePath)
}

// collect gathers every event of a stream.
type collector struct {
	events []domain.Event
	failAt int // 1-based event index at which emit fails; 0 never
}

var errClientGone = errors.New("client went away")

func (c *collector) emit(e domain.Event) error {
	if c.failAt > 0 && len(c.events)+1 == c.failAt {
		return errClientGone
	}
	c.events = append(c.events, e)
	return nil
}

func (c *collector) kinds() []domain.EventKind {
	out := make([]domain.EventKind, len(c.events))
	for i, e := range c.events {
		out[i] = e.Kind()
	}
	return out
}

func (c *collector) count(kind domain.EventKind) int {
	n := 0
	for _, e := range c.events {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

func (c *collector) text() string {
	var b strings.Builder
	for _, e := range c.events {
		if tok, ok := e.(domain.TokenEvent); ok {
			b.WriteString(tok.Text)
		}
	}
	return b.String()
}

// Verify interface compliance
var (
	_ driven.EmbeddingService = (*mockEmbedder)(nil)
	_ driven.VectorStore      = (*mockVectorStore)(nil)
	_ driven.LLMService       = (*mockLLM)(nil)
	_ driving.SearchService   = (*mockSearch)(nil)
	_ driven.PromptStore      = (*mockPromptStore)(nil)
	_ driven.FileStore        = (*mockFileStore)(nil)
	_ driven.DocumentParser   = (*mockParser)(nil)
	_ driven.ImageCaptioner   = (*mockCaptioner)(nil)
)
