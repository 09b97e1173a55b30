package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

// Tool name constants.
const (
	ToolListChats          = "list_chats"
	ToolGetMessages        = "get_messages"
	ToolSearchMessages     = "search_message_contents"
	ToolSearchChatNames    = "search_chat_names"
	ToolGetPersonMessages  = "get_person_messages"
	ToolGetMediaAttachment = "get_media_attachment"
)

// ServerName is shown in MCP client UIs.
const ServerName = "Beeper"

// Common argument helpers for recurring tool option definitions.

func withLimit(what, defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum number of "+what+" to return (default "+defaultDesc+")"),
	)
}

func withChatLabel(defaultLabel string) mcp.ToolOption {
	return mcp.WithString("label",
		mcp.Description("Chat label/folder (default "+defaultLabel+")"),
		mcp.Enum("inbox", "archive", "all", "favourite", "unread"),
	)
}

// NewServer builds the MCP server with every Beeper tool registered.
func NewServer(engine query.Engine, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := server.NewMCPServer(
		ServerName,
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	h := &handlers{engine: engine, logger: logger}

	s.AddTool(listChatsTool(), h.listChats)
	s.AddTool(getMessagesTool(), h.getMessages)
	s.AddTool(searchMessagesTool(), h.searchMessages)
	s.AddTool(searchChatNamesTool(), h.searchChatNames)
	s.AddTool(getPersonMessagesTool(), h.getPersonMessages)
	s.AddTool(getMediaAttachmentTool(), h.getMediaAttachment)
	return s
}

// Serve runs the MCP server over stdio. It blocks until stdin is closed or
// the context is cancelled. Diagnostics go to logger, never to stdout.
func Serve(ctx context.Context, engine query.Engine, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	stdio := server.NewStdioServer(NewServer(engine, logger))
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	logger.Info("starting MCP server on stdio", "name", ServerName)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func listChatsTool() mcp.Tool {
	return mcp.NewTool(ToolListChats,
		mcp.WithDescription("List group and DM chats with metadata, filtering and sorting options. Returns chats with platform, truncated recent messages, participants and timestamps."),
		mcp.WithReadOnlyHintAnnotation(true),
		withChatLabel("inbox"),
		mcp.WithString("sort_by",
			mcp.Description("Sort order (default latest_message)"),
			mcp.Enum("latest_message", "last_active", "name"),
		),
		withLimit("chats", "25"),
		mcp.WithNumber("recent_messages_limit",
			mcp.Description("Recent messages to include per chat (default 3, 0 disables)"),
		),
		mcp.WithNumber("max_participants",
			mcp.Description("Maximum participant names to list for group chats (default 5)"),
		),
		mcp.WithBoolean("include_low_priority",
			mcp.Description("Include low priority chats in archive/all views (default false)"),
		),
	)
}

func getMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolGetMessages,
		mcp.WithDescription("Get messages from a specific chat, newest first, with sender names, attachments and optional date bounds."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("chat_id",
			mcp.Required(),
			mcp.Description("ID of the chat/conversation"),
		),
		withLimit("messages", "50"),
		mcp.WithString("before",
			mcp.Description("Only messages before this ISO-8601 timestamp"),
		),
		mcp.WithString("after",
			mcp.Description("Only messages after this ISO-8601 timestamp"),
		),
	)
}

func searchMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolSearchMessages,
		mcp.WithDescription("Search message contents across all chats, optionally with the surrounding conversation for each match."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to search for across message contents"),
		),
		mcp.WithString("chat_id",
			mcp.Description("Limit the search to one chat"),
		),
		withLimit("results", "25"),
		mcp.WithBoolean("include_context",
			mcp.Description("Include messages before and after each match (default true)"),
		),
	)
}

func searchChatNamesTool() mcp.Tool {
	return mcp.NewTool(ToolSearchChatNames,
		mcp.WithDescription("Search for chats by name or partial name within a label."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Chat name or partial name"),
		),
		withChatLabel("all"),
		withLimit("chats", "25"),
	)
}

func getPersonMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolGetPersonMessages,
		mcp.WithDescription("Get messages sent by a specific person across all chats, grouped by chat."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("person_name",
			mcp.Required(),
			mcp.Description("Name of the person to search for"),
		),
		withLimit("messages per chat", "50"),
		mcp.WithString("platform",
			mcp.Description("Filter by platform (WhatsApp, Telegram, ...)"),
		),
		mcp.WithString("chat_type",
			mcp.Description("Filter by chat type (default all)"),
			mcp.Enum("dm", "group", "all"),
		),
		mcp.WithNumber("days_back",
			mcp.Description("Only include messages from the last N days"),
		),
		mcp.WithBoolean("include_context",
			mcp.Description("Include surrounding messages for context (default false)"),
		),
	)
}

func getMediaAttachmentTool() mcp.Tool {
	return mcp.NewTool(ToolGetMediaAttachment,
		mcp.WithDescription("Retrieve attachment content by URI. Images and audio come back base64-encoded; other files as a local file path. Failures are returned as {error, uri}."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("attachment_uri",
			mcp.Required(),
			mcp.Description("URI from a message's attachments (beeper://attachment/{message_id}/{index})"),
		),
		mcp.WithBoolean("optimize_for_context",
			mcp.Description("Downscale images to at most 1568px and re-encode as JPEG (default true)"),
		),
	)
}
