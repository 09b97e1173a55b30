// Package querytest provides shared test doubles for the query.Engine interface.
package querytest

import (
	"context"

	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

// MockEngine implements query.Engine for testing. Each method delegates to an
// optional function field; when the field is nil, the canned result is returned.
type MockEngine struct {
	Chats         []query.Chat
	ChatMatches   []query.Chat
	Messages      []query.Message
	SearchResults []query.ChatSearchResult
	PersonResults []query.ChatSearchResult
	Attachments   map[string]query.AttachmentContent

	// Optional overrides to customise behavior per-test.
	ListChatsFunc         func(context.Context, query.ListChatsOptions) ([]query.Chat, error)
	GetMessagesFunc       func(context.Context, query.GetMessagesOptions) ([]query.Message, error)
	SearchMessagesFunc    func(context.Context, query.SearchOptions) ([]query.ChatSearchResult, error)
	SearchChatsFunc       func(context.Context, query.SearchChatsOptions) ([]query.Chat, error)
	MessagesByPersonFunc  func(context.Context, query.PersonOptions) ([]query.ChatSearchResult, error)
	ResolveAttachmentFunc func(context.Context, string, bool) query.AttachmentContent
}

// Compile-time check.
var _ query.Engine = (*MockEngine)(nil)

func (m *MockEngine) ListChats(ctx context.Context, opts query.ListChatsOptions) ([]query.Chat, error) {
	if m.ListChatsFunc != nil {
		return m.ListChatsFunc(ctx, opts)
	}
	return m.Chats, nil
}

func (m *MockEngine) GetMessages(ctx context.Context, opts query.GetMessagesOptions) ([]query.Message, error) {
	if m.GetMessagesFunc != nil {
		return m.GetMessagesFunc(ctx, opts)
	}
	return m.Messages, nil
}

func (m *MockEngine) SearchMessages(ctx context.Context, opts query.SearchOptions) ([]query.ChatSearchResult, error) {
	if m.SearchMessagesFunc != nil {
		return m.SearchMessagesFunc(ctx, opts)
	}
	return m.SearchResults, nil
}

func (m *MockEngine) SearchChats(ctx context.Context, opts query.SearchChatsOptions) ([]query.Chat, error) {
	if m.SearchChatsFunc != nil {
		return m.SearchChatsFunc(ctx, opts)
	}
	return m.ChatMatches, nil
}

func (m *MockEngine) MessagesByPerson(ctx context.Context, opts query.PersonOptions) ([]query.ChatSearchResult, error) {
	if m.MessagesByPersonFunc != nil {
		return m.MessagesByPersonFunc(ctx, opts)
	}
	return m.PersonResults, nil
}

// ResolveAttachment returns the canned content for uri, or an error entry
// when none is registered.
func (m *MockEngine) ResolveAttachment(ctx context.Context, uri string, optimize bool) query.AttachmentContent {
	if m.ResolveAttachmentFunc != nil {
		return m.ResolveAttachmentFunc(ctx, uri, optimize)
	}
	if c, ok := m.Attachments[uri]; ok {
		return c
	}
	return query.AttachmentContent{Error: "Message not found or empty", URI: uri}
}
