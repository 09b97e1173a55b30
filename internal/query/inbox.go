package query

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tetmin/mcp-beeper-texts/internal/archive"
)

// inboxCandidate carries what the inbox rules need about one chat.
// ArchivedUpToOrder and LatestOrder are loaded only when a chat reaches
// the last rule.
type inboxCandidate struct {
	ChatID            string
	Archived          bool
	Favourite         bool
	ArchivedUpToOrder *int64
	LatestOrder       *int64
}

// inInbox reproduces Beeper's client-side inbox rule. load fills the order
// fields on demand; it is called at most once.
func inInbox(c inboxCandidate, load func(*inboxCandidate) error) (bool, error) {
	if isSystemChat(c.ChatID) {
		return false, nil
	}
	if c.Favourite || !c.Archived {
		return true, nil
	}
	if load != nil {
		if err := load(&c); err != nil {
			return false, err
		}
	}
	if c.ArchivedUpToOrder == nil {
		return true, nil
	}
	// New activity since archiving brings the chat back.
	return c.LatestOrder != nil && *c.LatestOrder > *c.ArchivedUpToOrder, nil
}

// loadInboxOrders reads the archive watermark and the newest visible
// message order for a candidate. Columns missing from older archives leave
// the corresponding field nil.
func (s *session) loadInboxOrders(c *inboxCandidate) error {
	var marker sql.NullString
	err := s.db.QueryRowContext(s.ctx,
		"SELECT json_extract(thread, '$.extra.isArchivedUpToOrder') FROM threads WHERE threadID = ?",
		c.ChatID).Scan(&marker)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		if archive.IsMissingSchema(err) {
			s.logger().Debug("archive watermark unavailable", "chat", c.ChatID, "error", err)
			return nil
		}
		return fmt.Errorf("archived order for %s: %w", c.ChatID, err)
	}
	if marker.Valid {
		if v, ok := parseOrder(marker.String); ok {
			c.ArchivedUpToOrder = &v
		}
	}
	if c.ArchivedUpToOrder == nil {
		return nil
	}

	var latest sql.NullInt64
	err = s.db.QueryRowContext(s.ctx,
		"SELECT MAX(hsOrder) FROM mx_room_messages WHERE roomID = ? AND type != ?",
		c.ChatID, typeHidden).Scan(&latest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		// Without message orders the chat counts as having no new activity.
		if archive.IsMissingSchema(err) {
			s.logger().Debug("message order unavailable", "chat", c.ChatID, "error", err)
			return nil
		}
		return fmt.Errorf("latest order for %s: %w", c.ChatID, err)
	}
	if latest.Valid {
		c.LatestOrder = &latest.Int64
	}
	return nil
}

// parseOrder accepts the watermark as an integer or a numeric string.
func parseOrder(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}
