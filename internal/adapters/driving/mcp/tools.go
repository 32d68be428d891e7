package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

const defaultSearchK = 5

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"the text to search for"`
	FileID string `json:"fileId,omitempty" jsonschema:"restrict the search to one document"`
	K      int    `json:"k,omitempty" jsonschema:"number of chunks to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// ChunkOutput is one scored chunk. Lower scores are closer matches.
type ChunkOutput struct {
	ChunkID    string  `json:"chunk_id"`
	FileID     string  `json:"fileId"`
	SourceName string  `json:"sourceName"`
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	FileID   string `json:"fileId,omitempty" jsonschema:"restrict retrieval to one document"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer        string            `json:"answer"`
	Citations     []domain.Citation `json:"citations"`
	UsedRetrieval bool              `json:"used_retrieval"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the document chunks closest to a query",
	}, s.handleSearch)

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question from the indexed documents, with citations",
		}, s.handleAsk)
	}
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, errors.New("query must not be empty")
	}
	k := input.K
	if k <= 0 {
		k = defaultSearchK
	}

	hits, err := s.ports.Search.Search(ctx, input.Query, k, domain.SearchFilter{SourceID: strings.TrimSpace(input.FileID)})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]ChunkOutput, len(hits)),
		Count:   len(hits),
	}
	for i, hit := range hits {
		output.Results[i] = ChunkOutput{
			ChunkID:    hit.Chunk.ID,
			FileID:     hit.Chunk.SourceID,
			SourceName: hit.Chunk.SourceName,
			Page:       hit.Chunk.Page,
			Score:      hit.Score,
			Text:       hit.Chunk.Content,
		}
	}
	return nil, output, nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Chat.Query(ctx, input.Question, strings.TrimSpace(input.FileID))
	if err != nil {
		return nil, AskOutput{}, err
	}

	citations := answer.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	return nil, AskOutput{
		Answer:        answer.Text,
		Citations:     citations,
		UsedRetrieval: answer.UsedRetrieval,
	}, nil
}
