package query

import "strings"

// Message types as stored in mx_room_messages.type.
const (
	TypeText     = "TEXT"
	TypeImage    = "IMAGE"
	TypeVideo    = "VIDEO"
	TypeAudio    = "AUDIO"
	TypeFile     = "FILE"
	TypeContact  = "CONTACT"
	TypeSticker  = "STICKER"
	TypeLocation = "LOCATION"
	typeHidden   = "HIDDEN"
)

// returnTypes are the message types surfaced in fetch and search results.
var returnTypes = []string{TypeText, TypeImage, TypeVideo, TypeAudio, TypeFile, TypeContact}

// extendedTypes also count stickers and locations. Used for totals and
// person lookups.
var extendedTypes = append(append([]string{}, returnTypes...), TypeSticker, TypeLocation)

// sqlList renders constant type names as a SQL IN list body.
func sqlList(types []string) string {
	return "'" + strings.Join(types, "', '") + "'"
}

var (
	returnTypesSQL   = sqlList(returnTypes)
	extendedTypesSQL = sqlList(extendedTypes)
)

// Label selects which chats ListChats returns, mirroring the Beeper sidebar.
type Label string

const (
	LabelAll       Label = "all"
	LabelInbox     Label = "inbox"
	LabelArchive   Label = "archive"
	LabelFavourite Label = "favourite"
	LabelUnread    Label = "unread"
)

// Labels lists every accepted label.
var Labels = []Label{LabelInbox, LabelArchive, LabelAll, LabelFavourite, LabelUnread}

// ParseLabel returns the label named s, or false.
func ParseLabel(s string) (Label, bool) {
	for _, l := range Labels {
		if strings.EqualFold(s, string(l)) {
			return l, true
		}
	}
	return "", false
}

// SortKey orders ListChats results.
type SortKey string

const (
	SortLatestMessage SortKey = "latest_message"
	SortLastActive    SortKey = "last_active"
	SortName          SortKey = "name"
)

// ChatType restricts person lookups to direct or group conversations.
type ChatType string

const (
	ChatTypeAll   ChatType = "all"
	ChatTypeDM    ChatType = "dm"
	ChatTypeGroup ChatType = "group"
)

// Chat is a conversation with its resolved metadata.
type Chat struct {
	ChatID         string    `json:"chat_id"`
	Name           string    `json:"name"`
	Platform       string    `json:"platform"`
	Unread         bool      `json:"unread"`
	LastActivity   string    `json:"last_activity"`
	TotalMessages  int       `json:"total_messages"`
	Participants   []string  `json:"participants"`
	RecentMessages []Message `json:"recent_messages"`
}

// Message is one message with its text already extracted.
type Message struct {
	SenderName  string              `json:"sender_name"`
	Text        string              `json:"text"`
	Timestamp   string              `json:"timestamp"`
	MessageType string              `json:"message_type"`
	InReplyTo   *string             `json:"in_reply_to"`
	Reactions   []Reaction          `json:"reactions"`
	Attachments []MessageAttachment `json:"attachments"`
}

// Reaction is an emoji reaction. Nothing in the archive populates it yet.
type Reaction struct {
	Emoji      string `json:"emoji"`
	SenderName string `json:"sender_name"`
	Timestamp  string `json:"timestamp"`
}

// MessageAttachment references one entry of a message's attachments array.
// URI is resolved lazily by ResolveAttachment.
type MessageAttachment struct {
	URI      string   `json:"uri"`
	Type     string   `json:"type"`
	MimeType string   `json:"mime_type"`
	Duration *float64 `json:"duration,omitempty"`
}

// ChatSearchResult pairs a chat with matched (and context) messages.
type ChatSearchResult struct {
	Chat     Chat      `json:"chat"`
	Messages []Message `json:"messages"`
}

// AttachmentContent is the outcome of resolving an attachment URI. Exactly
// one of Base64, Filepath or Error is set.
type AttachmentContent struct {
	Type          string `json:"type,omitempty"`
	MimeType      string `json:"mime_type,omitempty"`
	Base64        string `json:"base64,omitempty"`
	Filepath      string `json:"filepath,omitempty"`
	Filename      string `json:"filename,omitempty"`
	Error         string `json:"error,omitempty"`
	AttachmentURL string `json:"attachment_url,omitempty"`
	URI           string `json:"uri,omitempty"`
}

// ListChatsOptions configures ListChats.
type ListChatsOptions struct {
	Label              Label
	Sort               SortKey
	Limit              int
	RecentMessages     int // previews per chat; 0 disables
	MaxParticipants    int // group participants per chat; 0 disables
	IncludeLowPriority bool
}

// GetMessagesOptions configures GetMessages. Before and After are ISO-8601;
// unparseable values are ignored.
type GetMessagesOptions struct {
	ChatID string
	Limit  int
	Before string
	After  string
}

// SearchOptions configures SearchMessages.
type SearchOptions struct {
	Query          string
	ChatID         string // optional scope
	Limit          int
	IncludeContext bool
}

// SearchChatsOptions configures SearchChats.
type SearchChatsOptions struct {
	Query string
	Label Label
	Limit int
}

// PersonOptions configures MessagesByPerson.
type PersonOptions struct {
	Name           string
	Limit          int // per chat
	Platform       string
	ChatType       ChatType
	DaysBack       int
	IncludeContext bool
}
