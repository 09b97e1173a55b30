package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/tetmin/mcp-beeper-texts/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for Claude Desktop integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows Claude Desktop (or any MCP client) to read your Beeper chats
using the tools list_chats, get_messages, search_message_contents,
search_chat_names, get_person_messages and get_media_attachment.

The archive is opened per request, so the server can start before Beeper
Desktop has created it.

Add to Claude Desktop config:
  {
    "mcpServers": {
      "beeper": {
        "command": "beeper-texts",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := newEngine()
		if err := openArchive().Check(); err != nil {
			logger.Warn("archive not available yet; tools will return empty results", "error", err)
		}
		return mcpserver.Serve(cmd.Context(), engine, logger)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
