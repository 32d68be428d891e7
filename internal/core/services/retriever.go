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

// Ensure Retriever can take custom prompts.
var _ driven.PromptStoreAware = (*Retriever)(nil)

// Retriever searches the index and decides whether the hits are relevant
// enough to ground an answer.
type Retriever struct {
	search  driving.SearchService
	grader  driven.LLMService
	prompts driven.PromptStore
	cfg     domain.RetrievalSettings
}

// NewRetriever creates a retriever. The grader is optional; without it
// hits rejected by the score gate are kept.
func NewRetriever(search driving.SearchService, grader driven.LLMService, cfg domain.RetrievalSettings) *Retriever {
	defaults := domain.DefaultAppSettings().Retrieval
	if cfg.K <= 0 {
		cfg.K = defaults.K
	}
	if cfg.SnippetChars <= 0 {
		cfg.SnippetChars = defaults.SnippetChars
	}
	return &Retriever{
		search: search,
		grader: grader,
		cfg:    cfg,
	}
}

// SetPromptStore sets the prompt store for the grade prompt.
func (r *Retriever) SetPromptStore(store driven.PromptStore) {
	r.prompts = store
}

// Retrieve returns citations for the question and, when the hits are judged
// relevant, the context text to ground the answer in. Search failures
// degrade to an empty retrieval.
func (r *Retriever) Retrieve(ctx context.Context, question, sourceID string) domain.Retrieval {
	logger.Section("Retrieval")

	hits, err := r.search.Search(ctx, question, r.cfg.K, domain.SearchFilter{SourceID: sourceID})
	if err != nil {
		logger.Debug("Search failed, answering without context: %v", err)
		return domain.Retrieval{Citations: []domain.Citation{}, Decision: domain.DecisionNoHits}
	}
	if len(hits) == 0 {
		logger.Debug("Query: %q, Filter: %q, Hits: 0", question, sourceID)
		return domain.Retrieval{Citations: []domain.Citation{}, Decision: domain.DecisionNoHits}
	}

	citations := make([]domain.Citation, len(hits))
	blocks := make([]string, len(hits))
	for i, h := range hits {
		rank := i + 1
		snippet := truncateRunes(strings.TrimSpace(h.Chunk.Content), r.cfg.SnippetChars)
		citations[i] = domain.Citation{
			CitationID: domain.CitationID(h.Chunk.SourceID, rank),
			SourceID:   h.Chunk.SourceID,
			SourceName: h.Chunk.SourceName,
			Rank:       rank,
			Page:       h.Chunk.Page,
			Snippet:    snippet,
			Score:      h.Score,
			PreviewURL: domain.PreviewURL(h.Chunk.SourceID, h.Chunk.Page),
		}
		blocks[i] = fmt.Sprintf("Document: %s (Page %d)\nContent: %s", h.Chunk.SourceName, h.Chunk.Page, snippet)
	}
	contextText := strings.Join(blocks, "\n\n")

	decision := domain.DecisionAcceptedByScore
	if !r.scoreGate(hits) {
		decision = r.grade(ctx, question, contextText)
	}

	logger.Debug("Query: %q, Filter: %q, Hits: %d, Decision: %s", question, sourceID, len(hits), decision)

	out := domain.Retrieval{Citations: citations, Decision: decision}
	if decision.Accepted() {
		out.ContextText = contextText
	}
	return out
}

// scoreGate accepts when the best score or the mean of the top three is
// within its threshold.
func (r *Retriever) scoreGate(hits []domain.ScoredChunk) bool {
	if hits[0].Score <= r.cfg.TauTop1 {
		return true
	}
	n := len(hits)
	if n > 3 {
		n = 3
	}
	var sum float64
	for _, h := range hits[:n] {
		sum += h.Score
	}
	return sum/float64(n) <= r.cfg.TauMean3
}

// grade asks the model for a yes/no relevance verdict. A failed grader
// keeps the hits.
func (r *Retriever) grade(ctx context.Context, question, contextText string) domain.RelevanceDecision {
	if r.grader == nil {
		return domain.DecisionAcceptedByDefault
	}

	prompt := renderPrompt(loadPrompt(r.prompts, driven.PromptGrade), question, contextText)
	reply, err := r.grader.Chat(ctx,
		[]driven.ChatMessage{{Role: string(domain.RoleUser), Content: prompt}},
		driven.ChatOptions{Temperature: driven.Temperature(0)},
	)
	if err != nil {
		logger.Warn("%v: %v", domain.ErrGrader, err)
		return domain.DecisionAcceptedByDefault
	}
	if strings.Contains(strings.ToLower(reply), "yes") {
		return domain.DecisionAcceptedByGrader
	}
	return domain.DecisionRejected
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
