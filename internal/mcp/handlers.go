package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

const maxLimit = 1000

type handlers struct {
	engine query.Engine
	logger *slog.Logger
}

// requiredString extracts a non-empty string argument.
func requiredString(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if v == "" {
		return "", fmt.Errorf("%s parameter is required", key)
	}
	return v, nil
}

func stringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

func boolArg(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// labelArg parses an optional chat label.
func labelArg(args map[string]any, def query.Label) (query.Label, error) {
	raw := stringArg(args, "label", string(def))
	label, ok := query.ParseLabel(raw)
	if !ok {
		return "", fmt.Errorf("invalid label: %s", raw)
	}
	return label, nil
}

// sortArg parses sort_by. Unknown values fall back to latest_message.
func sortArg(args map[string]any) query.SortKey {
	switch key := query.SortKey(stringArg(args, "sort_by", "")); key {
	case query.SortLastActive, query.SortName:
		return key
	default:
		return query.SortLatestMessage
	}
}

func chatTypeArg(args map[string]any) (query.ChatType, error) {
	switch ct := query.ChatType(stringArg(args, "chat_type", string(query.ChatTypeAll))); ct {
	case query.ChatTypeAll, query.ChatTypeDM, query.ChatTypeGroup:
		return ct, nil
	default:
		return "", fmt.Errorf("invalid chat_type: %s", ct)
	}
}

func (h *handlers) listChats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	label, err := labelArg(args, query.LabelInbox)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	chats, err := h.engine.ListChats(ctx, query.ListChatsOptions{
		Label:              label,
		Sort:               sortArg(args),
		Limit:              limitArg(args, "limit", 25),
		RecentMessages:     limitArg(args, "recent_messages_limit", 3),
		MaxParticipants:    limitArg(args, "max_participants", 5),
		IncludeLowPriority: boolArg(args, "include_low_priority", false),
	})
	if err != nil {
		h.logger.Error("error listing chats", "error", err)
	}
	return listResult(chats)
}

func (h *handlers) getMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	chatID, err := requiredString(args, "chat_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msgs, err := h.engine.GetMessages(ctx, query.GetMessagesOptions{
		ChatID: chatID,
		Limit:  limitArg(args, "limit", 50),
		Before: stringArg(args, "before", ""),
		After:  stringArg(args, "after", ""),
	})
	if err != nil {
		h.logger.Error("error getting messages", "chat_id", chatID, "error", err)
	}
	return listResult(msgs)
}

func (h *handlers) searchMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	q, err := requiredString(args, "query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := h.engine.SearchMessages(ctx, query.SearchOptions{
		Query:          q,
		ChatID:         stringArg(args, "chat_id", ""),
		Limit:          limitArg(args, "limit", 25),
		IncludeContext: boolArg(args, "include_context", true),
	})
	if err != nil {
		h.logger.Error("error searching messages", "query", q, "error", err)
	}
	return listResult(results)
}

func (h *handlers) searchChatNames(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	q, err := requiredString(args, "query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	label, err := labelArg(args, query.LabelAll)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	chats, err := h.engine.SearchChats(ctx, query.SearchChatsOptions{
		Query: q,
		Label: label,
		Limit: limitArg(args, "limit", 25),
	})
	if err != nil {
		h.logger.Error("error searching chats", "query", q, "error", err)
	}
	return listResult(chats)
}

func (h *handlers) getPersonMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	name, err := requiredString(args, "person_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chatType, err := chatTypeArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := h.engine.MessagesByPerson(ctx, query.PersonOptions{
		Name:           name,
		Limit:          limitArg(args, "limit", 50),
		Platform:       stringArg(args, "platform", ""),
		ChatType:       chatType,
		DaysBack:       countArg(args, "days_back", 0),
		IncludeContext: boolArg(args, "include_context", false),
	})
	if err != nil {
		h.logger.Error("error getting messages by person", "person", name, "error", err)
	}
	return listResult(results)
}

func (h *handlers) getMediaAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	uri, err := requiredString(args, "attachment_uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	content := h.engine.ResolveAttachment(ctx, uri, boolArg(args, "optimize_for_context", true))
	if content.Error != "" {
		h.logger.Debug("attachment not resolved", "uri", uri, "error", content.Error)
	}
	return jsonResult(content)
}

// limitArg extracts a non-negative integer from a map, with a default.
// JSON numbers arrive as float64. Clamps to maxLimit to prevent excessive
// result sets.
func limitArg(args map[string]any, key string, def int) int {
	return min(countArg(args, key, def), maxLimit)
}

// countArg is limitArg without the result-set cap, for values such as a
// day count. Values beyond int32 are pinned there.
func countArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// listResult encodes items, rendering nil (including after an engine
// error) as an empty JSON list.
func listResult[T any](items []T) (*mcp.CallToolResult, error) {
	if items == nil {
		items = []T{}
	}
	return jsonResult(items)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
