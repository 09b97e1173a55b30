package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tetmin/mcp-beeper-texts/internal/textutil"
)

// MessagesByPerson finds every sender whose resolved name contains the
// query and returns their messages grouped by chat. Chats appear in the
// order their newest matching message was seen; each holds at most Limit
// messages, newest first. An empty name matches every sender but the user.
func (e *SQLiteEngine) MessagesByPerson(ctx context.Context, opts PersonOptions) ([]ChatSearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultMessageLimit
	}

	s, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	senders, err := s.matchingSenders(opts.Name)
	if err != nil {
		return nil, err
	}
	if len(senders) == 0 {
		return []ChatSearchResult{}, nil
	}

	// Pass the sender set as one JSON array so large sets stay under
	// SQLite's bound-variable limit.
	senderJSON, err := json.Marshal(senders)
	if err != nil {
		return nil, fmt.Errorf("encode senders: %w", err)
	}
	query := `SELECT ` + messageColumns + `
		FROM mx_room_messages
		WHERE senderContactID IN (SELECT value FROM json_each(?))
		AND type IN (` + extendedTypesSQL + `)`
	args := []any{string(senderJSON)}
	if opts.Platform != "" {
		query += ` AND LOWER(roomID) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(opts.Platform))+"%")
	}
	if opts.DaysBack > 0 {
		query += " AND timestamp > ?"
		args = append(args, time.Now().AddDate(0, 0, -opts.DaysBack).UnixMilli())
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.queryMessages(query, args...)
	if err != nil {
		return nil, fmt.Errorf("person messages: %w", err)
	}

	type group struct {
		chatID string
		rows   []messageRow
	}
	var order []*group
	byChat := make(map[string]*group)
	for _, r := range rows {
		if !chatTypeMatches(opts.ChatType, r.RoomID) {
			continue
		}
		g, ok := byChat[r.RoomID]
		if !ok {
			g = &group{chatID: r.RoomID}
			byChat[r.RoomID] = g
			order = append(order, g)
		}
		if len(g.rows) < limit {
			g.rows = append(g.rows, r)
		}
	}

	results := make([]ChatSearchResult, 0, len(order))
	for _, g := range order {
		messages := s.buildMessages(g.rows)
		chat, err := s.buildChat(g.chatID, messages[0].Timestamp)
		if err != nil {
			return nil, err
		}
		if opts.IncludeContext {
			window, err := s.contextMessages(g.chatID, g.rows[0].Timestamp, e.opts.PersonContextLimit)
			if err != nil {
				return nil, err
			}
			if len(window) > 0 {
				messages = window
			}
		}
		results = append(results, ChatSearchResult{Chat: chat, Messages: messages})
	}
	return results, nil
}

// matchingSenders returns the distinct non-self sender ids whose resolved
// name contains name, in first-seen order.
func (s *session) matchingSenders(name string) ([]string, error) {
	rows, err := s.db.QueryContext(s.ctx, `SELECT DISTINCT senderContactID, roomID
		FROM mx_room_messages
		WHERE senderContactID IS NOT NULL
		AND senderContactID != 'user'
		AND type IN (`+extendedTypesSQL+`)`)
	if err != nil {
		return nil, fmt.Errorf("list senders: %w", err)
	}
	type pair struct{ sender, room string }
	var pairs []pair
	for rows.Next() {
		var sender string
		var room sql.NullString
		if err := rows.Scan(&sender, &room); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sender: %w", err)
		}
		pairs = append(pairs, pair{sender: sender, room: room.String})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var senders []string
	for _, p := range pairs {
		if seen[p.sender] || isSelfSender(p.sender) {
			continue
		}
		if textutil.ContainsFold(s.contactName(p.sender, p.room, false), name) {
			seen[p.sender] = true
			senders = append(senders, p.sender)
		}
	}
	return senders, nil
}

// chatTypeMatches applies the dm/group filter using the id heuristic.
func chatTypeMatches(want ChatType, roomID string) bool {
	switch want {
	case ChatTypeDM:
		return !IsGroupChatID(roomID)
	case ChatTypeGroup:
		return IsGroupChatID(roomID)
	default:
		return true
	}
}
