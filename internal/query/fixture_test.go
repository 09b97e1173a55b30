package query

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/tetmin/mcp-beeper-texts/internal/archive"
	"github.com/tetmin/mcp-beeper-texts/internal/testutil"
)

// testEnv pairs a throw-away archive with an engine reading it.
type testEnv struct {
	*testutil.ArchiveBuilder
	Engine *SQLiteEngine
	Ctx    context.Context
	T      *testing.T
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	b := testutil.NewArchive(t)
	return &testEnv{
		ArchiveBuilder: b,
		Engine:         NewSQLiteEngine(archive.New(b.Root), DefaultOptions(), nil),
		Ctx:            context.Background(),
		T:              t,
	}
}

// withOptions rebuilds the engine with opts.
func (e *testEnv) withOptions(opts Options) *testEnv {
	e.Engine = NewSQLiteEngine(archive.New(e.Root), opts, nil)
	return e
}

func (e *testEnv) MustListChats(opts ListChatsOptions) []Chat {
	e.T.Helper()
	chats, err := e.Engine.ListChats(e.Ctx, opts)
	if err != nil {
		e.T.Fatalf("ListChats: %v", err)
	}
	return chats
}

func (e *testEnv) MustGetMessages(opts GetMessagesOptions) []Message {
	e.T.Helper()
	msgs, err := e.Engine.GetMessages(e.Ctx, opts)
	if err != nil {
		e.T.Fatalf("GetMessages: %v", err)
	}
	return msgs
}

func (e *testEnv) MustSearch(opts SearchOptions) []ChatSearchResult {
	e.T.Helper()
	results, err := e.Engine.SearchMessages(e.Ctx, opts)
	if err != nil {
		e.T.Fatalf("SearchMessages: %v", err)
	}
	return results
}

func (e *testEnv) MustPerson(opts PersonOptions) []ChatSearchResult {
	e.T.Helper()
	results, err := e.Engine.MessagesByPerson(e.Ctx, opts)
	if err != nil {
		e.T.Fatalf("MessagesByPerson: %v", err)
	}
	return results
}

// baseMillis is a fixed epoch-ms reference for fixtures (2023-11-14).
const baseMillis int64 = 1_700_000_000_000

// at returns baseMillis shifted by d.
func at(d time.Duration) int64 {
	return baseMillis + d.Milliseconds()
}

// textPayload returns a minimal TEXT payload.
func textPayload(s string) string {
	raw, _ := json.Marshal(map[string]string{"text": s})
	return string(raw)
}

func chatIDs(chats []Chat) []string {
	ids := make([]string, len(chats))
	for i, c := range chats {
		ids[i] = c.ChatID
	}
	return ids
}

func messageTexts(msgs []Message) []string {
	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = m.Text
	}
	return texts
}
