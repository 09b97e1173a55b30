package query

import (
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 form every timestamp is rendered in.
const TimestampLayout = time.RFC3339Nano

// Beeper stores epochs in whatever unit the bridge produced. Magnitude
// tells them apart for any date after 1970-01-12.
const (
	nanosThreshold  = 1e18
	microsThreshold = 1e15
	millisThreshold = 1e12
)

// unitsPerSecond returns how many units of raw's encoding make one second.
func unitsPerSecond(raw int64) int64 {
	switch {
	case raw > nanosThreshold:
		return int64(time.Second / time.Nanosecond)
	case raw > microsThreshold:
		return int64(time.Second / time.Microsecond)
	case raw > millisThreshold:
		return int64(time.Second / time.Millisecond)
	default:
		return 1
	}
}

// EpochTime converts a raw archive timestamp to a local time. ok is false
// when the value lands outside years 1..9999.
func EpochTime(raw int64) (t time.Time, ok bool) {
	switch unitsPerSecond(raw) {
	case 1e9:
		t = time.Unix(0, raw)
	case 1e6:
		t = time.UnixMicro(raw)
	case 1e3:
		t = time.UnixMilli(raw)
	default:
		t = time.Unix(raw, 0)
	}
	if y := t.Year(); y < 1 || y > 9999 {
		return time.Time{}, false
	}
	return t.Local(), true
}

// NormalizeTimestamp formats a raw archive timestamp. Values that cannot be
// represented degrade to the current time.
func NormalizeTimestamp(raw int64) string {
	t, ok := EpochTime(raw)
	if !ok {
		t = time.Now()
	}
	return t.Format(TimestampLayout)
}

// windowUnits expresses d in the same unit as the reference timestamp.
func windowUnits(ref int64, d time.Duration) int64 {
	return int64(d.Seconds() * float64(unitsPerSecond(ref)))
}

var platforms = []struct{ keyword, label string }{
	{"whatsapp", "WhatsApp"},
	{"telegram", "Telegram"},
	{"signal", "Signal"},
	{"linkedin", "LinkedIn"},
	{"discord", "Discord"},
	{"slack", "Slack"},
	{"facebook", "Facebook"},
	{"instagram", "Instagram"},
	{"imessage", "iMessage"},
	{"twitter", "Twitter"},
}

// Platform labels outside the keyword table.
const (
	PlatformBeeper  = "Beeper"
	PlatformUnknown = "Unknown"
)

// PlatformLabels returns every label ResolvePlatform can produce.
func PlatformLabels() []string {
	labels := make([]string, 0, len(platforms)+2)
	for _, p := range platforms {
		labels = append(labels, p.label)
	}
	return append(labels, PlatformBeeper, PlatformUnknown)
}

// ResolvePlatform infers the network a room belongs to from its id.
func ResolvePlatform(roomID string) string {
	lower := strings.ToLower(roomID)
	for _, p := range platforms {
		if strings.Contains(lower, p.keyword) {
			return p.label
		}
	}
	if strings.Contains(roomID, "beeper.local") {
		return PlatformBeeper
	}
	return PlatformUnknown
}

// IsGroupChatID guesses whether a room is a group from its id alone.
// Only used where the thread carries no explicit type.
func IsGroupChatID(roomID string) bool {
	return strings.Contains(strings.ToLower(roomID), "group") || strings.Contains(roomID, "@g.us")
}

// isSystemChat reports Beeper's own service rooms.
func isSystemChat(roomID string) bool {
	return strings.HasSuffix(roomID, ":beeper.local") || strings.HasSuffix(roomID, ":beeper.com")
}

// isSelfSender guesses whether a sender id is the account owner when no
// isSentByMe flag is at hand.
func isSelfSender(senderID string) bool {
	return senderID == "user" || (strings.Contains(senderID, "@") && strings.Contains(senderID, "beeper.com"))
}

var boundLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseBound parses an ISO-8601 filter bound to epoch milliseconds.
// Values without a zone are local time.
func ParseBound(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range boundLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}
