package query

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/tetmin/mcp-beeper-texts/internal/archive"
)

// chatName returns the thread title, else the DM counterpart's name from the
// matching bridge store, else a cleaned-up room id. Store failures only move
// the lookup to the next candidate.
func (s *session) chatName(title, chatID string) string {
	if title != "" {
		return title
	}

	platform := ResolvePlatform(chatID)
	for _, store := range s.engine.archive.StoresFor(platform) {
		name, err := s.ghostName(store, chatID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.logger().Debug("bridge name lookup failed", "store", store.Name, "chat", chatID, "error", err)
			}
			continue
		}
		return name
	}

	return fallbackChatName(chatID)
}

func (s *session) ghostName(store archive.PlatformStore, chatID string) (string, error) {
	db, err := archive.OpenReadOnly(s.ctx, store.Path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var otherUser string
	err = db.QueryRowContext(s.ctx,
		"SELECT other_user_id FROM portal WHERE mxid = ? AND other_user_id IS NOT NULL",
		chatID).Scan(&otherUser)
	if err != nil {
		return "", err
	}

	var name sql.NullString
	err = db.QueryRowContext(s.ctx,
		"SELECT name FROM ghost WHERE id = ? AND name != ''",
		otherUser).Scan(&name)
	if err != nil {
		return "", err
	}
	if !name.Valid || name.String == "" {
		return "", sql.ErrNoRows
	}
	return name.String, nil
}

// fallbackChatName turns "!abc:server" into "abc".
func fallbackChatName(chatID string) string {
	if strings.HasPrefix(chatID, "!") && strings.Contains(chatID, ":") {
		return strings.SplitN(chatID, ":", 2)[0][1:]
	}
	return chatID
}

// isCommunity reports whether a WhatsApp room is a community space or a
// room nested under one. Only the first WhatsApp store is consulted.
func (s *session) isCommunity(chatID string) bool {
	store, err := s.engine.archive.StoreFor("whatsapp")
	if err != nil {
		return false
	}

	db, err := archive.OpenReadOnly(s.ctx, store.Path)
	if err != nil {
		s.logger().Debug("open bridge store", "store", store.Name, "error", err)
		return false
	}
	defer db.Close()

	var roomType, parentID sql.NullString
	err = db.QueryRowContext(s.ctx,
		"SELECT room_type, parent_id FROM portal WHERE mxid = ?", chatID).Scan(&roomType, &parentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger().Debug("community lookup failed", "chat", chatID, "error", err)
		}
		return false
	}
	return roomType.String == "space" || parentID.Valid
}
