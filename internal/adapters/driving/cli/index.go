package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

const defaultSearchK = 5

var (
	searchFileID string
	searchK      int
	searchJSON   bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build <fileId>",
	Short: "Add a parsed file to the index",
	Long: `Chunk the parsed markdown of a file and add it to the vector index.

The file must have been parsed first (see 'sea-rag files add').`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexBuild,
}

var indexSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the vector index",
	Long:  `Embed the query and print the nearest chunks. Lower scores are closer.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIndexSearch,
}

func init() {
	indexSearchCmd.Flags().StringVar(&searchFileID, "file", "", "restrict results to one file id")
	indexSearchCmd.Flags().IntVar(&searchK, "k", defaultSearchK, "number of results")
	indexSearchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexSearchCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	ingest, err := ingestService()
	if err != nil {
		return err
	}

	res, err := ingest.BuildIndex(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	cmd.Printf("Indexed %s: %d chunks (%s)\n", res.FileID, res.Chunks, res.IndexPath)
	return nil
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	search, err := searchService()
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	k := searchK
	if k <= 0 {
		k = defaultSearchK
	}

	results, err := search.Search(cmd.Context(), query, k, domain.SearchFilter{SourceID: searchFileID})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

type searchHit struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	FileID   string  `json:"file_id"`
	Source   string  `json:"source"`
	Page     int     `json:"page"`
	ChunkID  string  `json:"chunk_id"`
	Position int     `json:"position"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.ScoredChunk) error {
	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, searchHit{
			Text:     r.Chunk.Content,
			Score:    r.Score,
			FileID:   r.Chunk.SourceID,
			Source:   r.Chunk.SourceName,
			Page:     r.Chunk.Page,
			ChunkID:  r.Chunk.ID,
			Position: r.Chunk.Position,
		})
	}
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, r := range results {
		name := r.Chunk.SourceName
		if name == "" {
			name = r.Chunk.SourceID
		}
		cmd.Printf("  [%d] %s p.%d (%.3f)\n", i+1, name, r.Chunk.Page, r.Score)
		cmd.Printf("      %s\n\n", snippet(r.Chunk.Content, 200))
	}
	return nil
}

// snippet flattens whitespace and truncates text to n runes.
func snippet(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= n {
		return flat
	}
	return string(runes[:n]) + "..."
}
