package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

// maxLimit caps every limit-like parameter.
const maxLimit = 1000

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "invalid_request", message)
}

// params wraps URL query values and records the first parse failure so
// handlers can read every parameter before checking for errors.
type params struct {
	values url.Values
	err    error
}

func newParams(r *http.Request) *params {
	return &params{values: r.URL.Query()}
}

func (p *params) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

func (p *params) str(key string) string {
	return p.values.Get(key)
}

// limit parses a non-negative integer, clamped to maxLimit.
func (p *params) limit(key string, def int) int {
	return min(p.count(key, def), maxLimit)
}

// count parses a non-negative integer with no upper bound.
func (p *params) count(key string, def int) int {
	raw := p.values.Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail("%s must be an integer", key)
		return def
	}
	return max(n, 0)
}

func (p *params) boolean(key string, def bool) bool {
	raw := p.values.Get(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail("%s must be a boolean", key)
		return def
	}
	return b
}

func (p *params) label(def query.Label) query.Label {
	raw := p.values.Get("label")
	if raw == "" {
		return def
	}
	l, ok := query.ParseLabel(raw)
	if !ok {
		p.fail("invalid label: %s", raw)
		return def
	}
	return l
}

// required records an error when key is absent.
func (p *params) required(key string) string {
	v := p.values.Get(key)
	if v == "" {
		p.fail("%s parameter is required", key)
	}
	return v
}

// emptyIfNil keeps list responses as JSON arrays.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// handleListChats lists chats for a label.
func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	sort := query.SortKey(p.str("sort_by"))
	switch sort {
	case query.SortLatestMessage, query.SortLastActive, query.SortName:
	default:
		sort = query.SortLatestMessage
	}
	opts := query.ListChatsOptions{
		Label:              p.label(query.LabelInbox),
		Sort:               sort,
		Limit:              p.limit("limit", 25),
		RecentMessages:     p.limit("recent_messages_limit", 3),
		MaxParticipants:    p.limit("max_participants", 5),
		IncludeLowPriority: p.boolean("include_low_priority", false),
	}
	if p.err != nil {
		badRequest(w, p.err.Error())
		return
	}

	chats, err := s.engine.ListChats(r.Context(), opts)
	if err != nil {
		s.engineError(w, "list chats", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(chats))
}

// handleGetMessages returns one chat's messages, newest first.
func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if decoded, err := url.PathUnescape(chatID); err == nil {
		chatID = decoded
	}

	p := newParams(r)
	opts := query.GetMessagesOptions{
		ChatID: chatID,
		Limit:  p.limit("limit", 50),
		Before: p.str("before"),
		After:  p.str("after"),
	}
	if p.err != nil {
		badRequest(w, p.err.Error())
		return
	}

	msgs, err := s.engine.GetMessages(r.Context(), opts)
	if err != nil {
		s.engineError(w, "get messages", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(msgs))
}

// handleSearchMessages runs a substring search over message text.
func (s *Server) handleSearchMessages(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	opts := query.SearchOptions{
		Query:          p.required("q"),
		ChatID:         p.str("chat_id"),
		Limit:          p.limit("limit", 25),
		IncludeContext: p.boolean("include_context", true),
	}
	if p.err != nil {
		badRequest(w, p.err.Error())
		return
	}

	results, err := s.engine.SearchMessages(r.Context(), opts)
	if err != nil {
		s.engineError(w, "search messages", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(results))
}

// handleSearchChats matches chat names.
func (s *Server) handleSearchChats(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	opts := query.SearchChatsOptions{
		Query: p.required("q"),
		Label: p.label(query.LabelAll),
		Limit: p.limit("limit", 25),
	}
	if p.err != nil {
		badRequest(w, p.err.Error())
		return
	}

	chats, err := s.engine.SearchChats(r.Context(), opts)
	if err != nil {
		s.engineError(w, "search chats", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(chats))
}

// handlePersonMessages groups a contact's messages by chat.
func (s *Server) handlePersonMessages(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	p := newParams(r)
	chatType := query.ChatType(p.str("chat_type"))
	switch chatType {
	case "":
		chatType = query.ChatTypeAll
	case query.ChatTypeAll, query.ChatTypeDM, query.ChatTypeGroup:
	default:
		p.fail("invalid chat_type: %s", chatType)
	}
	opts := query.PersonOptions{
		Name:           name,
		Limit:          p.limit("limit", 50),
		Platform:       p.str("platform"),
		ChatType:       chatType,
		DaysBack:       p.count("days_back", 0),
		IncludeContext: p.boolean("include_context", false),
	}
	if p.err != nil {
		badRequest(w, p.err.Error())
		return
	}

	results, err := s.engine.MessagesByPerson(r.Context(), opts)
	if err != nil {
		s.engineError(w, "get person messages", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(results))
}

// handleAttachment resolves a beeper://attachment URI. Resolution failures
// are reported with the same body shape as successes, under 404.
func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	uri := p.required("uri")
	optimize := p.boolean("optimize", true)
	if p.err != nil {
		badRequest(w, p.err.Error())
		return
	}

	content := s.engine.ResolveAttachment(r.Context(), uri, optimize)
	if content.Error != "" {
		s.logger.Debug("attachment not resolved", "uri", uri, "error", content.Error)
		writeJSON(w, http.StatusNotFound, content)
		return
	}
	writeJSON(w, http.StatusOK, content)
}
