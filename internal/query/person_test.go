package query

import (
	"testing"
	"time"

	"github.com/tetmin/mcp-beeper-texts/internal/testutil"
)

const (
	roomBobDM    = "!bob:whatsapp.com"
	roomBobGroup = "!bookgroup:telegram.org"
)

// seedPeople writes Bob Jones under two sender ids, one per chat.
func seedPeople(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.AddThread(testutil.Thread{
		ID:           roomBobDM,
		Title:        "Bob",
		Participants: []testutil.Participant{{ID: "@bob:whatsapp.com", FullName: "Bob Jones"}},
	})
	env.AddThread(testutil.Thread{
		ID:    roomBobGroup,
		Title: "Book Group",
		Participants: []testutil.Participant{
			{ID: "@bobt:telegram.org", FullName: "Bob Jones"},
			{ID: "@carol:telegram.org", FullName: "Carol"},
		},
	})

	msg := func(room, sender, text string, d time.Duration, self bool) {
		env.AddMessage(testutil.Message{Room: room, Sender: sender, Payload: textPayload(text), Timestamp: at(d), SentByMe: self})
	}
	msg(roomBobDM, "@bob:whatsapp.com", "dm one", time.Hour, false)
	msg(roomBobDM, "@bob:whatsapp.com", "dm two", 2*time.Hour, false)
	msg(roomBobDM, "@me:beeper.com", "me reply", 2*time.Hour+30*time.Minute, true)
	msg(roomBobDM, "@bob:whatsapp.com", "dm three", 3*time.Hour, false)
	msg(roomBobGroup, "@bobt:telegram.org", "group hi", 4*time.Hour, false)
	msg(roomBobGroup, "@carol:telegram.org", "carol says", 5*time.Hour, false)
	return env
}

func resultSummary(results []ChatSearchResult) map[string][]string {
	out := make(map[string][]string)
	for _, r := range results {
		out[r.Chat.ChatID] = messageTexts(r.Messages)
	}
	return out
}

func TestMessagesByPersonGroupsByChat(t *testing.T) {
	env := seedPeople(t)
	results := env.MustPerson(PersonOptions{Name: "bob jones", Limit: 2})
	if len(results) != 2 {
		t.Fatalf("got %d chats, want 2", len(results))
	}

	testutil.AssertStrings(t, []string{results[0].Chat.ChatID, results[1].Chat.ChatID}, roomBobGroup, roomBobDM)
	testutil.AssertStrings(t, messageTexts(results[0].Messages), "group hi")
	testutil.AssertStrings(t, messageTexts(results[1].Messages), "dm three", "dm two")

	if results[0].Chat.Name != "Book Group" || results[0].Chat.LastActivity != NormalizeTimestamp(at(4*time.Hour)) {
		t.Errorf("group chat = %+v", results[0].Chat)
	}
	for _, r := range results {
		for _, m := range r.Messages {
			if m.SenderName != "Bob Jones" {
				t.Errorf("%s: sender %q, want Bob Jones", r.Chat.ChatID, m.SenderName)
			}
		}
	}
}

func TestMessagesByPersonFilters(t *testing.T) {
	env := seedPeople(t)

	tests := []struct {
		name string
		opts PersonOptions
		want []string
	}{
		{"dm only", PersonOptions{Name: "Bob", ChatType: ChatTypeDM}, []string{roomBobDM}},
		{"group only", PersonOptions{Name: "Bob", ChatType: ChatTypeGroup}, []string{roomBobGroup}},
		{"platform", PersonOptions{Name: "Bob", Platform: "WhatsApp"}, []string{roomBobDM}},
		{"days back excludes old", PersonOptions{Name: "Bob", DaysBack: 1}, nil},
		{"unknown person", PersonOptions{Name: "Zed"}, nil},
		{"empty name matches everyone", PersonOptions{Name: ""}, []string{roomBobGroup, roomBobDM}},
		{"platform wildcard is literal", PersonOptions{Name: "Bob", Platform: "what_app"}, nil},
		{"platform percent is literal", PersonOptions{Name: "Bob", Platform: "%"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := env.MustPerson(tt.opts)
			if results == nil {
				t.Fatal("results should be an empty list, not nil")
			}
			var ids []string
			for _, r := range results {
				ids = append(ids, r.Chat.ChatID)
			}
			testutil.AssertStrings(t, ids, tt.want...)
		})
	}
}

func TestMessagesByPersonRecent(t *testing.T) {
	env := newTestEnv(t)
	env.AddThread(testutil.Thread{
		ID:           roomBobDM,
		Participants: []testutil.Participant{{ID: "@bob:whatsapp.com", FullName: "Bob Jones"}},
	})
	now := time.Now()
	env.AddMessage(testutil.Message{Room: roomBobDM, Sender: "@bob:whatsapp.com", Payload: textPayload("today"), Timestamp: now.UnixMilli()})
	env.AddMessage(testutil.Message{Room: roomBobDM, Sender: "@bob:whatsapp.com", Payload: textPayload("last month"), Timestamp: now.AddDate(0, -1, 0).UnixMilli()})

	results := env.MustPerson(PersonOptions{Name: "bob", DaysBack: 7})
	if got := resultSummary(results); len(got) != 1 || len(got[roomBobDM]) != 1 || got[roomBobDM][0] != "today" {
		t.Errorf("recent results = %v", got)
	}
}

func TestMessagesByPersonContext(t *testing.T) {
	env := seedPeople(t)
	results := env.MustPerson(PersonOptions{Name: "Bob", ChatType: ChatTypeDM, IncludeContext: true})
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	// Window is one hour either side of the newest match (dm three).
	testutil.AssertStrings(t, messageTexts(results[0].Messages), "dm two", "me reply", "dm three")
}

func TestMessagesByPersonEmptyNameSkipsSelf(t *testing.T) {
	env := seedPeople(t)
	got := resultSummary(env.MustPerson(PersonOptions{}))
	testutil.AssertStrings(t, got[roomBobGroup], "carol says", "group hi")
	// "me reply" is the user's own message.
	testutil.AssertStrings(t, got[roomBobDM], "dm three", "dm two", "dm one")
}
