package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		typ     string
		want    string
	}{
		{"empty", "", "TEXT", ""},
		{"plain text", "hi", "TEXT", "hi"},
		{"plain text with other type", "caption", "IMAGE", "caption"},
		{"json text", `{"text":"hello"}`, "TEXT", "hello"},
		{"json body wins", `{"body":"b","text":"t"}`, "TEXT", "b"},
		{"empty body still wins", `{"body":"","text":"t"}`, "TEXT", ""},
		{"text without fields", `{}`, "TEXT", ""},
		{"lowercase type", `{"text":"x"}`, "text", "x"},
		{"missing type is text", `{"body":"x"}`, "", "x"},
		{"image placeholder", `{}`, "IMAGE", "[Image]"},
		{"image caption", `{"text":"look"}`, "IMAGE", "look"},
		{"video placeholder", `{}`, "VIDEO", "[Video]"},
		{"audio url", `{"url":"mxc://a"}`, "AUDIO", "[Audio: mxc://a]"},
		{"audio bare", `{}`, "AUDIO", "[Audio message]"},
		{"file with url", `{"filename":"a.pdf","url":"mxc://f"}`, "FILE", "[File: a.pdf - mxc://f]"},
		{"file bare", `{}`, "FILE", "[File: file]"},
		{"location", `{"geo_uri":"geo:1,2"}`, "LOCATION", "[Location: geo:1,2]"},
		{"location bare", `{}`, "LOCATION", "[Location]"},
		{"contact", `{"display_name":"Ann"}`, "CONTACT", "[Contact: Ann]"},
		{"contact bare", `{}`, "CONTACT", "[Contact: Contact]"},
		{"sticker", `{"url":"mxc://s"}`, "STICKER", "[Sticker: mxc://s]"},
		{"sticker bare", `{}`, "STICKER", "[Sticker]"},
		{"unknown type body", `{"body":"poll"}`, "POLL", "poll"},
		{"unknown type bare", `{}`, "POLL", "[POLL]"},
		{"malformed json is text", `{"text":`, "TEXT", `{"text":`},
		{"array is text", `[1,2]`, "TEXT", `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.payload, tt.typ); got != tt.want {
				t.Errorf("ExtractText(%q, %q) = %q, want %q", tt.payload, tt.typ, got, tt.want)
			}
		})
	}
}

func TestExtractTextNonTextNeverEmpty(t *testing.T) {
	for _, typ := range []string{"IMAGE", "VIDEO", "AUDIO", "FILE", "LOCATION", "CONTACT", "STICKER", "CUSTOM"} {
		if got := ExtractText(`{"unrelated":1}`, typ); got == "" {
			t.Errorf("ExtractText(%s) is empty", typ)
		}
	}
}

func TestExtractAttachments(t *testing.T) {
	payload := `{"attachments":[{"mimeType":"image/jpeg"},{"mimetype":"audio/mpeg","duration":3.5},{"mimeType":"application/pdf"}]}`
	dur := 3.5
	want := []MessageAttachment{
		{URI: "beeper://attachment/evt2/0", Type: "image", MimeType: "image/jpeg"},
		{URI: "beeper://attachment/evt2/1", Type: "audio", MimeType: "audio/mpeg", Duration: &dur},
		{URI: "beeper://attachment/evt2/2", Type: "file", MimeType: "application/pdf"},
	}
	got := ExtractAttachments(payload, "evt2")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractAttachments mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractAttachmentsDegrades(t *testing.T) {
	tests := map[string]string{
		"empty":         "",
		"plain text":    "hello",
		"malformed":     `{"attachments":[`,
		"no array":      `{"text":"x"}`,
		"not an array":  `{"attachments":{"a":1}}`,
		"empty array":   `{"attachments":[]}`,
		"top-level arr": `[{"mimeType":"image/png"}]`,
	}
	for name, payload := range tests {
		if got := ExtractAttachments(payload, "m"); len(got) != 0 {
			t.Errorf("%s: got %d attachments, want none", name, len(got))
		}
	}
}

func TestExtractAttachmentsKeepsIndexes(t *testing.T) {
	// A junk entry still occupies its slot so later URIs stay stable.
	got := ExtractAttachments(`{"attachments":["junk",{}]}`, "m")
	if len(got) != 1 {
		t.Fatalf("got %d attachments, want 1", len(got))
	}
	if got[0].URI != "beeper://attachment/m/1" || got[0].MimeType != defaultMimeType || got[0].Type != "file" {
		t.Errorf("attachment = %+v", got[0])
	}
}

func TestAttachmentURIRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		id    string
		index int
	}{
		{"$evt:beeper.com", 0},
		{"msg_1700000000000", 3},
		{"a/b", 12},
	} {
		id, index, err := ParseAttachmentURI(AttachmentURI(tc.id, tc.index))
		if err != nil {
			t.Fatalf("ParseAttachmentURI: %v", err)
		}
		if id != tc.id || index != tc.index {
			t.Errorf("round trip = (%q, %d), want (%q, %d)", id, index, tc.id, tc.index)
		}
	}
}

func TestParseAttachmentURIErrors(t *testing.T) {
	for _, uri := range []string{
		"http://x/evt/0",
		"beeper://attachment/",
		"beeper://attachment/evt",
		"beeper://attachment/evt/x",
		"beeper://attachment//0",
	} {
		if _, _, err := ParseAttachmentURI(uri); err == nil {
			t.Errorf("ParseAttachmentURI(%q) succeeded", uri)
		}
	}
}
