package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sea-rag/internal/adapters/driving/mcp"
)

var mcpPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default the server speaks JSON-RPC over stdio. Use --port to serve
streamable HTTP instead, for example to test with MCP Inspector.

Tools:
  search  - nearest chunks for a query
  ask     - answer a question with citations

Resources:
  searag://files                                   - uploaded files
  searag://files/{fileId}/pages/{page}/images      - images of one page

Examples:
  # Stdio mode
  sea-rag mcp

  # HTTP mode
  sea-rag mcp --port 8080

Client configuration:
  {
    "mcpServers": {
      "sea-rag": {
        "command": "/path/to/sea-rag",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	search, err := searchService()
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		Search: search,
	}
	if app != nil {
		ports.Chat = app.Chat
		ports.Files = app.Files
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpPort > 0 {
		addr := fmt.Sprintf(":%d", mcpPort)
		cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
