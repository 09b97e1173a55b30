package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tetmin/mcp-beeper-texts/internal/archive"
)

// Options tunes the SQLite engine.
type Options struct {
	ContextWindow      time.Duration // ± window around a search match
	ContextLimit       int           // messages in a search context window
	PersonContextLimit int           // messages in a person context window
	ImageMaxDimension  int           // longest edge of optimized images
	ImageQuality       int           // JPEG quality of optimized images
	MaxInlineBytes     int64         // larger files are returned by path
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		ContextWindow:      time.Hour,
		ContextLimit:       10,
		PersonContextLimit: 20,
		ImageMaxDimension:  1568,
		ImageQuality:       85,
		MaxInlineBytes:     50 << 20,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ContextWindow <= 0 {
		o.ContextWindow = d.ContextWindow
	}
	if o.ContextLimit <= 0 {
		o.ContextLimit = d.ContextLimit
	}
	if o.PersonContextLimit <= 0 {
		o.PersonContextLimit = d.PersonContextLimit
	}
	if o.ImageMaxDimension <= 0 {
		o.ImageMaxDimension = d.ImageMaxDimension
	}
	if o.ImageQuality <= 0 || o.ImageQuality > 100 {
		o.ImageQuality = d.ImageQuality
	}
	if o.MaxInlineBytes <= 0 {
		o.MaxInlineBytes = d.MaxInlineBytes
	}
	return o
}

// SQLiteEngine implements Engine directly over Beeper's SQLite files.
// It holds no connections between calls.
type SQLiteEngine struct {
	archive *archive.Archive
	opts    Options
	logger  *slog.Logger
}

// Compile-time check.
var _ Engine = (*SQLiteEngine)(nil)

// NewSQLiteEngine creates an engine over a. A nil logger discards output.
func NewSQLiteEngine(a *archive.Archive, opts Options, logger *slog.Logger) *SQLiteEngine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteEngine{archive: a, opts: opts.withDefaults(), logger: logger}
}

// Archive returns the archive the engine reads.
func (e *SQLiteEngine) Archive() *archive.Archive {
	return e.archive
}

// session is the state of one top-level operation: a single index.db
// connection plus lookups memoized for the duration of the call.
type session struct {
	ctx          context.Context
	db           *sql.DB
	engine       *SQLiteEngine
	participants map[string]map[string]string // roomID -> sender id -> full name
}

func (e *SQLiteEngine) open(ctx context.Context) (*session, error) {
	db, err := e.archive.OpenIndex(ctx)
	if err != nil {
		return nil, err
	}
	return &session{
		ctx:          ctx,
		db:           db,
		engine:       e,
		participants: make(map[string]map[string]string),
	}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

func (s *session) logger() *slog.Logger {
	return s.engine.logger
}

// messageColumns is the column list every message query selects, in the
// order scanMessage expects.
const messageColumns = "roomID, senderContactID, message, timestamp, isSentByMe, type, inReplyToID, eventID"

// messageRow is one raw mx_room_messages row.
type messageRow struct {
	RoomID    string
	SenderID  string
	Payload   string
	Timestamp int64
	SentByMe  bool
	Type      string
	InReplyTo sql.NullString
	EventID   string
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(sc scanner) (messageRow, error) {
	var (
		r                         messageRow
		room, sender, payload, ev sql.NullString
		typ                       sql.NullString
		ts, self                  sql.NullInt64
	)
	if err := sc.Scan(&room, &sender, &payload, &ts, &self, &typ, &r.InReplyTo, &ev); err != nil {
		return r, err
	}
	r.RoomID = room.String
	r.SenderID = sender.String
	r.Payload = payload.String
	r.Timestamp = ts.Int64
	r.SentByMe = self.Valid && self.Int64 != 0
	r.Type = typ.String
	if r.Type == "" {
		r.Type = TypeText
	}
	r.EventID = ev.String
	return r, nil
}

// queryMessages runs a message query and scans every row.
func (s *session) queryMessages(query string, args ...any) ([]messageRow, error) {
	rows, err := s.db.QueryContext(s.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []messageRow
	for rows.Next() {
		r, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// buildMessage resolves sender name, text and attachments for a row.
func (s *session) buildMessage(r messageRow) Message {
	msg := Message{
		SenderName:  s.contactName(r.SenderID, r.RoomID, r.SentByMe),
		Text:        ExtractText(r.Payload, r.Type),
		Timestamp:   NormalizeTimestamp(r.Timestamp),
		MessageType: strings.ToLower(r.Type),
		Reactions:   []Reaction{},
		Attachments: []MessageAttachment{},
	}
	if r.InReplyTo.Valid && r.InReplyTo.String != "" {
		v := r.InReplyTo.String
		msg.InReplyTo = &v
	}
	if r.Payload != "" {
		messageID := r.EventID
		if messageID == "" {
			messageID = fmt.Sprintf("msg_%d", r.Timestamp)
		}
		if atts := ExtractAttachments(r.Payload, messageID); len(atts) > 0 {
			msg.Attachments = atts
		}
	}
	return msg
}

func (s *session) buildMessages(rows []messageRow) []Message {
	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.buildMessage(r))
	}
	return out
}

// contactName resolves a sender to the display name recorded in the room's
// participants list. Any failure falls back to the raw sender id.
func (s *session) contactName(senderID, roomID string, isSelf bool) string {
	if isSelf {
		return "Me"
	}
	names, ok := s.participants[roomID]
	if !ok {
		names = s.loadParticipants(roomID)
		s.participants[roomID] = names
	}
	if name := names[senderID]; name != "" {
		return name
	}
	return senderID
}

func (s *session) loadParticipants(roomID string) map[string]string {
	var raw sql.NullString
	err := s.db.QueryRowContext(s.ctx,
		"SELECT json_extract(thread, '$.participants.items') FROM threads WHERE threadID = ?",
		roomID).Scan(&raw)
	if err != nil || !raw.Valid {
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			s.logger().Debug("participants lookup failed", "room", roomID, "error", err)
		}
		return nil
	}
	var items []struct {
		ID       string `json:"id"`
		FullName string `json:"fullName"`
	}
	if err := json.Unmarshal([]byte(raw.String), &items); err != nil {
		s.logger().Debug("malformed participants", "room", roomID, "error", err)
		return nil
	}
	names := make(map[string]string, len(items))
	for _, p := range items {
		if _, seen := names[p.ID]; !seen {
			names[p.ID] = p.FullName
		}
	}
	return names
}

// contextMessages returns same-chat messages within the configured window
// around ts, oldest first.
func (s *session) contextMessages(roomID string, ts int64, limit int) ([]Message, error) {
	span := windowUnits(ts, s.engine.opts.ContextWindow)
	rows, err := s.queryMessages(`SELECT `+messageColumns+`
		FROM mx_room_messages
		WHERE roomID = ? AND type IN (`+returnTypesSQL+`)
		AND message IS NOT NULL
		AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp ASC
		LIMIT ?`, roomID, ts-span, ts+span, limit)
	if err != nil {
		return nil, fmt.Errorf("context messages: %w", err)
	}
	return s.buildMessages(rows), nil
}
