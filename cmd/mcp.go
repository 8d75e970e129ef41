package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trellis-notes/trellis/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Start a Model Context Protocol server over stdin/stdout, exposing
search and note management tools to MCP clients.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	server := mcp.NewNotesServer(appConfig, app)
	if err := server.ServeStdio(); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
