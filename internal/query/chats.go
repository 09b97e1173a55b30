package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tetmin/mcp-beeper-texts/internal/archive"
	"github.com/tetmin/mcp-beeper-texts/internal/textutil"
)

const (
	defaultChatLimit = 25
	previewRunes     = 100
)

// buildChat assembles the core of a Chat: name, platform and message total.
// Participants and previews are left empty for callers to add.
func (s *session) buildChat(chatID, lastActivity string) (Chat, error) {
	var title sql.NullString
	err := s.db.QueryRowContext(s.ctx,
		"SELECT json_extract(thread, '$.title') FROM threads WHERE threadID = ?", chatID).Scan(&title)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Chat{}, fmt.Errorf("thread title for %s: %w", chatID, err)
	}

	var total int
	err = s.db.QueryRowContext(s.ctx,
		"SELECT COUNT(*) FROM mx_room_messages WHERE roomID = ? AND type IN ("+extendedTypesSQL+")",
		chatID).Scan(&total)
	if err != nil {
		return Chat{}, fmt.Errorf("count messages for %s: %w", chatID, err)
	}

	if lastActivity == "" {
		lastActivity = NormalizeTimestamp(0)
	}
	return Chat{
		ChatID:         chatID,
		Name:           s.chatName(title.String, chatID),
		Platform:       ResolvePlatform(chatID),
		LastActivity:   lastActivity,
		TotalMessages:  total,
		Participants:   []string{},
		RecentMessages: []Message{},
	}, nil
}

// chatRow is one row of the ListChats base query.
type chatRow struct {
	ChatID      string
	Title       string
	ThreadType  string
	Unread      bool
	Archived    bool
	Tags        string
	LastOpen    int64
	LastMessage sql.NullInt64
}

func (r chatRow) favourite() bool {
	return strings.Contains(r.Tags, "favourite")
}

func (r chatRow) isGroup() bool {
	if r.ThreadType != "" {
		return r.ThreadType == "group"
	}
	return IsGroupChatID(r.ChatID)
}

const lowPriorityFilter = "COALESCE(json_extract(t.thread, '$.isLowPriority'), 0) = 0"

// labelConditions returns the WHERE predicates for a label.
func labelConditions(label Label, includeLowPriority bool) []string {
	var conds []string
	switch label {
	case LabelInbox:
		conds = append(conds, lowPriorityFilter)
	case LabelArchive:
		conds = append(conds,
			"json_extract(t.thread, '$.extra.isArchivedUpto') IS NOT NULL",
			"COALESCE(json_extract(t.thread, '$.extra.tags'), '') NOT LIKE '%favourite%'")
	case LabelFavourite:
		conds = append(conds, "json_extract(t.thread, '$.extra.tags') LIKE '%favourite%'")
	case LabelUnread:
		conds = append(conds,
			"(COALESCE(json_extract(t.thread, '$.isMarkedUnread'), 0) != 0 OR COALESCE(json_extract(t.thread, '$.isUnread'), 0) != 0)")
	}
	if label != LabelInbox && !includeLowPriority {
		conds = append(conds, lowPriorityFilter)
	}
	return conds
}

func sortClause(key SortKey) string {
	switch key {
	case SortLastActive:
		return "b.lastOpenTime DESC, t.threadID"
	case SortName:
		return "json_extract(t.thread, '$.title') ASC, t.threadID"
	default:
		return "COALESCE(last_message_time, b.lastOpenTime, 0) DESC, t.threadID"
	}
}

// ListChats returns chats for a label with previews and participants.
func (e *SQLiteEngine) ListChats(ctx context.Context, opts ListChatsOptions) ([]Chat, error) {
	s, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.listChats(opts)
}

func (s *session) listChats(opts ListChatsOptions) ([]Chat, error) {
	label := opts.Label
	if label == "" {
		label = LabelInbox
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultChatLimit
	}

	// The inbox filter runs after the query, so it cannot use SQL LIMIT.
	var args []any
	if label != LabelInbox {
		args = append(args, limit)
	}

	rows, err := s.scanChatRows(chatListQuery(label, opts, breadcrumbsJoin), args...)
	if archive.IsMissingSchema(err) {
		s.logger().Debug("listing chats without breadcrumbs", "error", err)
		rows, err = s.scanChatRows(chatListQuery(label, opts, noBreadcrumbsJoin), args...)
	}
	if err != nil {
		return nil, err
	}

	chats := make([]Chat, 0, min(len(rows), limit))
	for _, row := range rows {
		if len(chats) >= limit {
			break
		}
		if label == LabelInbox {
			ok, err := inInbox(inboxCandidate{
				ChatID:    row.ChatID,
				Archived:  row.Archived,
				Favourite: row.favourite(),
			}, s.loadInboxOrders)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			// Communities have their own section in Beeper, not the inbox.
			if row.isGroup() && ResolvePlatform(row.ChatID) == "WhatsApp" && s.isCommunity(row.ChatID) {
				continue
			}
		}

		chat, err := s.enrichChat(row, opts)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

const (
	breadcrumbsJoin = "LEFT JOIN breadcrumbs b ON t.threadID = b.id"
	// noBreadcrumbsJoin stands in when breadcrumbs is missing or lacks
	// lastOpenTime, so every chat has no open time.
	noBreadcrumbsJoin = "LEFT JOIN (SELECT NULL AS id, NULL AS lastOpenTime) b ON t.threadID = b.id"
)

// chatListQuery builds the ListChats base query. A LIMIT placeholder is
// added for every label except inbox.
func chatListQuery(label Label, opts ListChatsOptions, join string) string {
	var sb strings.Builder
	sb.WriteString(`SELECT t.threadID,
		json_extract(t.thread, '$.title'),
		json_extract(t.thread, '$.type'),
		COALESCE(json_extract(t.thread, '$.isMarkedUnread'), 0) != 0
			OR COALESCE(json_extract(t.thread, '$.isUnread'), 0) != 0,
		json_extract(t.thread, '$.extra.isArchivedUpto') IS NOT NULL,
		json_extract(t.thread, '$.extra.tags'),
		COALESCE(b.lastOpenTime, 0),
		(SELECT MAX(timestamp) FROM mx_room_messages
			WHERE roomID = t.threadID AND type IN (` + returnTypesSQL + `)) AS last_message_time
		FROM threads t
		`)
	sb.WriteString(join)
	if conds := labelConditions(label, opts.IncludeLowPriority); len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(sortClause(opts.Sort))

	if label != LabelInbox {
		sb.WriteString(" LIMIT ?")
	}
	return sb.String()
}

func (s *session) scanChatRows(query string, args ...any) ([]chatRow, error) {
	rows, err := s.db.QueryContext(s.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var out []chatRow
	for rows.Next() {
		var (
			r                chatRow
			title, typ, tags sql.NullString
			unread, archived bool
		)
		if err := rows.Scan(&r.ChatID, &title, &typ, &unread, &archived, &tags, &r.LastOpen, &r.LastMessage); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		r.Title = title.String
		r.ThreadType = typ.String
		r.Unread = unread
		r.Archived = archived
		r.Tags = tags.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// enrichChat builds a chat and layers on previews and participants.
func (s *session) enrichChat(row chatRow, opts ListChatsOptions) (Chat, error) {
	lastActivity := row.LastOpen
	if row.LastMessage.Valid && row.LastMessage.Int64 != 0 {
		lastActivity = row.LastMessage.Int64
	}
	chat, err := s.buildChat(row.ChatID, NormalizeTimestamp(lastActivity))
	if err != nil {
		return Chat{}, err
	}
	chat.Unread = row.Unread

	if opts.RecentMessages > 0 {
		recent, err := s.queryMessages(`SELECT `+messageColumns+`
			FROM mx_room_messages
			WHERE roomID = ? AND type IN (`+returnTypesSQL+`)
			AND message IS NOT NULL
			ORDER BY timestamp DESC LIMIT ?`, row.ChatID, opts.RecentMessages)
		if err != nil {
			return Chat{}, fmt.Errorf("recent messages for %s: %w", row.ChatID, err)
		}
		slices.Reverse(recent)
		for _, r := range recent {
			msg := s.buildMessage(r)
			msg.Text = textutil.Preview(msg.Text, previewRunes)
			chat.RecentMessages = append(chat.RecentMessages, msg)
		}
	}

	if row.isGroup() && opts.MaxParticipants > 0 {
		names, err := s.rankParticipants(row.ChatID, opts.MaxParticipants)
		if err != nil {
			return Chat{}, err
		}
		chat.Participants = names
	}
	return chat, nil
}

// rankParticipants lists a chat's senders by message count, most active first.
func (s *session) rankParticipants(chatID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(s.ctx, `SELECT senderContactID, COUNT(*) AS message_count
		FROM mx_room_messages
		WHERE roomID = ? AND type IN (`+returnTypesSQL+`)
		AND senderContactID IS NOT NULL
		GROUP BY senderContactID
		ORDER BY message_count DESC, senderContactID
		LIMIT ?`, chatID, limit)
	if err != nil {
		if archive.IsMissingSchema(err) {
			s.logger().Debug("participants unavailable", "chat", chatID, "error", err)
			return []string{}, nil
		}
		return nil, fmt.Errorf("participants for %s: %w", chatID, err)
	}
	var senders []string
	for rows.Next() {
		var sender string
		var count int
		if err := rows.Scan(&sender, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		senders = append(senders, sender)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Close before resolving names: the session has a single connection.
	rows.Close()

	names := make([]string, 0, len(senders))
	for _, sender := range senders {
		names = append(names, s.contactName(sender, chatID, isSelfSender(sender)))
	}
	return names, nil
}

// SearchChats matches chat names case-insensitively among the chats a
// label would list.
func (e *SQLiteEngine) SearchChats(ctx context.Context, opts SearchChatsOptions) ([]Chat, error) {
	label := opts.Label
	if label == "" {
		label = LabelAll
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultChatLimit
	}

	s, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	candidates, err := s.listChats(ListChatsOptions{
		Label:           label,
		Sort:            SortLatestMessage,
		Limit:           limit * 3,
		RecentMessages:  3,
		MaxParticipants: 10,
	})
	if err != nil {
		return nil, err
	}

	matches := make([]Chat, 0, limit)
	for _, c := range candidates {
		if textutil.ContainsFold(c.Name, opts.Query) {
			matches = append(matches, c)
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}
