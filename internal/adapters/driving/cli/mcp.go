package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medindex/internal/adapters/driving/mcp"
)

var mcpPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search and
index clinical records.

Tools:
  search_records  semantic search, optionally scoped to a patient_id
  index_record    index a local path or a URL with record metadata

Resources:
  medindex://collection  collection name, dimension and point count

By default, the server communicates over stdio using JSON-RPC. Use --port
to serve the streamable HTTP transport instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  medindex mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  medindex mcp serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if err := requireServices(cmd.Context()); err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search: searchService,
		Index:  indexService,
		Ingest: ingestService,
	})
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
