package query

import (
	"errors"
	"testing"

	"github.com/tetmin/mcp-beeper-texts/internal/testutil"
)

func TestInInbox(t *testing.T) {
	orders := func(marker, latest *int64) func(*inboxCandidate) error {
		return func(c *inboxCandidate) error {
			c.ArchivedUpToOrder = marker
			c.LatestOrder = latest
			return nil
		}
	}
	i64 := testutil.Int64

	tests := []struct {
		name string
		c    inboxCandidate
		load func(*inboxCandidate) error
		want bool
	}{
		{"system chat", inboxCandidate{ChatID: "!x:beeper.local"}, nil, false},
		{"system favourite", inboxCandidate{ChatID: "!x:beeper.com", Favourite: true}, nil, false},
		{"favourite archived", inboxCandidate{ChatID: "!a:wa", Favourite: true, Archived: true}, nil, true},
		{"not archived", inboxCandidate{ChatID: "!a:wa"}, nil, true},
		{"archived without marker", inboxCandidate{ChatID: "!a:wa", Archived: true}, orders(nil, i64(5)), true},
		{"archived newer activity", inboxCandidate{ChatID: "!a:wa", Archived: true}, orders(i64(5), i64(6)), true},
		{"archived tie", inboxCandidate{ChatID: "!a:wa", Archived: true}, orders(i64(5), i64(5)), false},
		{"archived older", inboxCandidate{ChatID: "!a:wa", Archived: true}, orders(i64(5), i64(4)), false},
		{"archived no messages", inboxCandidate{ChatID: "!a:wa", Archived: true}, orders(i64(5), nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inInbox(tt.c, tt.load)
			if err != nil {
				t.Fatalf("inInbox: %v", err)
			}
			if got != tt.want {
				t.Errorf("inInbox = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInInboxLoadOnlyWhenNeeded(t *testing.T) {
	calls := 0
	load := func(*inboxCandidate) error {
		calls++
		return nil
	}
	for _, c := range []inboxCandidate{
		{ChatID: "!x:beeper.local", Archived: true},
		{ChatID: "!a:wa", Favourite: true, Archived: true},
		{ChatID: "!a:wa"},
	} {
		if _, err := inInbox(c, load); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 0 {
		t.Errorf("load called %d times, want 0", calls)
	}

	boom := errors.New("boom")
	_, err := inInbox(inboxCandidate{ChatID: "!a:wa", Archived: true}, func(*inboxCandidate) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{" 7 ", 7, true},
		{"12.0", 12, true},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseOrder(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseOrder(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
