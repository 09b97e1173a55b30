package query

import "context"

// Engine answers read-only questions about a Beeper archive.
// SQLiteEngine is the production implementation; querytest.MockEngine
// stands in for it in surface tests.
type Engine interface {
	// ListChats returns chats for a sidebar label, enriched with previews
	// and group participants.
	ListChats(ctx context.Context, opts ListChatsOptions) ([]Chat, error)

	// GetMessages returns one chat's messages, newest first.
	GetMessages(ctx context.Context, opts GetMessagesOptions) ([]Message, error)

	// SearchMessages finds messages whose text contains the query, newest
	// first, each optionally widened to a window of surrounding messages.
	SearchMessages(ctx context.Context, opts SearchOptions) ([]ChatSearchResult, error)

	// SearchChats matches chat display names.
	SearchChats(ctx context.Context, opts SearchChatsOptions) ([]Chat, error)

	// MessagesByPerson groups a contact's messages by chat.
	MessagesByPerson(ctx context.Context, opts PersonOptions) ([]ChatSearchResult, error)

	// ResolveAttachment turns a beeper://attachment URI into inline bytes or
	// a file reference. Failures are reported in the Error field.
	ResolveAttachment(ctx context.Context, uri string, optimize bool) AttachmentContent
}
