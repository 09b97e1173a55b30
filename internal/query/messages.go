package query

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultMessageLimit = 50
	defaultSearchLimit  = 25
)

// GetMessages returns a chat's messages, newest first. Bounds that fail to
// parse are ignored rather than rejected.
func (e *SQLiteEngine) GetMessages(ctx context.Context, opts GetMessagesOptions) ([]Message, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultMessageLimit
	}

	s, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	query := `SELECT ` + messageColumns + `
		FROM mx_room_messages
		WHERE roomID = ? AND type IN (` + returnTypesSQL + `)
		AND message IS NOT NULL`
	args := []any{opts.ChatID}
	if after, ok := ParseBound(opts.After); ok {
		query += " AND timestamp > ?"
		args = append(args, after)
	} else if opts.After != "" {
		e.logger.Debug("ignoring unparseable bound", "after", opts.After)
	}
	if before, ok := ParseBound(opts.Before); ok {
		query += " AND timestamp < ?"
		args = append(args, before)
	} else if opts.Before != "" {
		e.logger.Debug("ignoring unparseable bound", "before", opts.Before)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.queryMessages(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	return s.buildMessages(rows), nil
}

// escapeLike makes % and _ in a user query match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// searchTextExpr picks the same field ExtractText shows: body before text for
// TEXT, text before body otherwise, the raw payload when it is not a JSON
// object. CASE evaluates one branch, so json_type never sees invalid JSON.
const searchTextExpr = `(CASE
		WHEN NOT json_valid(message) THEN message
		WHEN json_type(message) != 'object' THEN message
		WHEN UPPER(type) = 'TEXT' THEN COALESCE(json_extract(message, '$.body'), json_extract(message, '$.text'))
		ELSE COALESCE(json_extract(message, '$.text'), json_extract(message, '$.body'))
	END)`

// SearchMessages finds messages whose text contains the query, newest first.
// With context, each match is replaced by the messages around it in the
// same chat; a window that comes back empty keeps the bare match.
func (e *SQLiteEngine) SearchMessages(ctx context.Context, opts SearchOptions) ([]ChatSearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	s, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	query := `SELECT ` + messageColumns + `
		FROM mx_room_messages
		WHERE ` + searchTextExpr + ` LIKE ? ESCAPE '\'
		AND type IN (` + returnTypesSQL + `)`
	args := []any{"%" + escapeLike(opts.Query) + "%"}
	if opts.ChatID != "" {
		query += " AND roomID = ?"
		args = append(args, opts.ChatID)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	matches, err := s.queryMessages(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	results := make([]ChatSearchResult, 0, len(matches))
	for _, m := range matches {
		match := s.buildMessage(m)
		messages := []Message{match}
		if opts.IncludeContext {
			window, err := s.contextMessages(m.RoomID, m.Timestamp, e.opts.ContextLimit)
			if err != nil {
				return nil, err
			}
			if len(window) > 0 {
				messages = window
			}
		}

		chat, err := s.buildChat(m.RoomID, match.Timestamp)
		if err != nil {
			return nil, err
		}
		results = append(results, ChatSearchResult{Chat: chat, Messages: messages})
	}
	return results, nil
}
