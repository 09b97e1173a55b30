package query

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tetmin/mcp-beeper-texts/internal/archive"
	"github.com/tetmin/mcp-beeper-texts/internal/testutil"
)

// addAttachmentMessage stores a message whose attachments array is items.
func (e *testEnv) addAttachmentMessage(eventID string, items ...map[string]any) {
	e.T.Helper()
	raw, err := json.Marshal(map[string]any{"text": "", "attachments": items})
	testutil.MustNoErr(e.T, err, "marshal attachments")
	e.AddMessage(testutil.Message{Room: roomTiny, Sender: "@ann:whatsapp.com", Payload: string(raw), Timestamp: baseMillis, EventID: eventID, Type: "IMAGE"})
}

func decodeB64(t *testing.T, s string) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(s)
	testutil.MustNoErr(t, err, "decode base64")
	return data
}

func TestResolveAttachmentMediaSearch(t *testing.T) {
	env := newTestEnv(t)
	png := testutil.PNG(t, 2000, 1000, color.NRGBA{R: 255, A: 255})
	// A name containing the wanted one sorts first; the exact match still wins.
	env.WriteMedia("aa/pic1234", []byte("decoy"))
	env.WriteMedia("ab/pic123", png)
	env.addAttachmentMessage("$img", map[string]any{"mimeType": "image/png", "srcURL": "mxc://server/pic123?thumb=1", "fileName": "pic.png"})

	t.Run("optimized", func(t *testing.T) {
		got := env.Engine.ResolveAttachment(env.Ctx, "beeper://attachment/$img/0", true)
		if got.Error != "" {
			t.Fatalf("error: %s", got.Error)
		}
		if got.Type != "image" || got.MimeType != "image/jpeg" || got.Filename != "" {
			t.Errorf("content = %+v", got)
		}
		cfg, format := testutil.DecodeConfig(t, decodeB64(t, got.Base64))
		if format != "jpeg" || cfg.Width != 1568 || cfg.Height != 784 {
			t.Errorf("optimized image = %s %dx%d, want jpeg 1568x784", format, cfg.Width, cfg.Height)
		}
	})

	t.Run("raw", func(t *testing.T) {
		got := mustContent(t, env.Engine.ResolveAttachment(env.Ctx, "beeper://attachment/$img/0", false))
		if got.Type != "image" || got.MimeType != "image/png" || got.Filename != "pic.png" {
			t.Errorf("content = %+v", got)
		}
		if !bytes.Equal(decodeB64(t, got.Base64), png) {
			t.Error("raw image bytes changed")
		}
	})
}

// mustContent fails the test when c carries an error and returns it otherwise.
func mustContent(t *testing.T, c AttachmentContent) AttachmentContent {
	t.Helper()
	if c.Error != "" {
		t.Fatalf("unexpected error: %s", c.Error)
	}
	return c
}

func TestResolveAttachmentSources(t *testing.T) {
	env := newTestEnv(t)
	outside := t.TempDir()

	jpeg := testutil.JPEG(t, 10, 10, color.RGBA{R: 255, A: 255})
	absPath := testutil.WriteFile(t, outside, "direct.jpg", jpeg)
	spacedPath := testutil.WriteFile(t, outside, "my pic.jpg", jpeg)
	dataPNG := testutil.PNG(t, 8, 4, color.NRGBA{B: 255, A: 255})
	dataB64 := base64.StdEncoding.EncodeToString(dataPNG)
	env.WriteMedia("docs/report.pdf", []byte("%PDF-1.4"))
	env.WriteMedia("voice/voice1.ogg", []byte("OggS"))

	env.addAttachmentMessage("$abs", map[string]any{"mimeType": "image/jpeg", "url": absPath})
	env.addAttachmentMessage("$file", map[string]any{"mimeType": "image/jpeg", "url": "file://" + strings.ReplaceAll(spacedPath, " ", "%20")})
	env.addAttachmentMessage("$data", map[string]any{"url": "data:image/png;base64," + dataB64})
	env.addAttachmentMessage("$multi",
		map[string]any{"mimeType": "application/pdf", "url": "mxc://server/report.pdf"},
		map[string]any{"mimetype": "audio/ogg", "id": "voice1"},
	)

	t.Run("absolute path", func(t *testing.T) {
		got := mustContent(t, env.Engine.ResolveAttachment(env.Ctx, "beeper://attachment/$abs/0", false))
		want := AttachmentContent{Type: "image", MimeType: "image/jpeg", Base64: base64.StdEncoding.EncodeToString(jpeg), Filename: "direct.jpg"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("escaped file url", func(t *testing.T) {
		got := mustContent(t, env.Engine.ResolveAttachment(env.Ctx, "beeper://attachment/$file/0", false))
		if got.Filename != "my pic.jpg" || !bytes.Equal(decodeB64(t, got.Base64), jpeg) {
			t.Errorf("content = %+v", got)
		}
	})

	t.Run("data uri", func(t *testing.T) {
		got := mustContent(t, env.Engine.ResolveAttachment(env.Ctx, "beeper://attachment/$data/0", false))
		want := AttachmentContent{Type: "image", MimeType: "image/png", Base64: dataB64}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		opt := mustContent(t, env.Engine.ResolveAttachment(env.Ctx, "beeper://attachment/$data/0", true))
		cfg, format := testutil.DecodeConfig(t, decodeB64(t, opt.Base64))
		if format != "jpeg" || cfg.Width != 8 || cfg.Height != 4 {
			t.Errorf("optimized data uri = %s %dx%d", format, cfg.Width, cfg.Height)
		}
	})

	t.Run("file by path", func(t *testing.T) {
		got := mustContent(t, env.Engine.ResolveAttachment(env.Ctx, "beeper://attachment/$multi/0", true))
		want := AttachmentContent{Type: "file", MimeType: "application/pdf", Filepath: filepath.Join(env.MediaDir(), "docs", "report.pdf")}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("audio by media id", func(t *testing.T) {
		got := mustContent(t, env.Engine.ResolveAttachment(env.Ctx, "beeper://attachment/$multi/1", true))
		want := AttachmentContent{Type: "audio", MimeType: "audio/ogg", Base64: base64.StdEncoding.EncodeToString([]byte("OggS")), Filename: "voice1.ogg"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("large audio by path", func(t *testing.T) {
		small := newTestEnvAt(t, env.Root, Options{MaxInlineBytes: 2})
		got := mustContent(t, small.ResolveAttachment(env.Ctx, "beeper://attachment/$multi/1", true))
		if got.Base64 != "" || got.Filepath != filepath.Join(env.MediaDir(), "voice", "voice1.ogg") {
			t.Errorf("content = %+v", got)
		}
	})
}

// newTestEnvAt returns an engine over an existing fixture root.
func newTestEnvAt(t *testing.T, root string, opts Options) *SQLiteEngine {
	t.Helper()
	return NewSQLiteEngine(archive.New(root), opts, nil)
}

func TestResolveAttachmentErrors(t *testing.T) {
	env := newTestEnv(t)
	env.WriteMedia("broken.png", []byte("not an image"))
	env.addAttachmentMessage("$img",
		map[string]any{"mimeType": "image/jpeg", "srcURL": "mxc://server/nothere"},
		map[string]any{"mimeType": "image/png"},
		map[string]any{"mimeType": "image/png", "url": "mxc://server/broken.png"},
	)
	env.AddMessage(testutil.Message{Room: roomTiny, Sender: "@a:x", Payload: "bare", Timestamp: baseMillis, EventID: "$bare"})

	tests := []struct {
		name string
		uri  string
		want AttachmentContent
	}{
		{"wrong scheme", "http://x/$img/0",
			AttachmentContent{Error: "Invalid attachment URI format - must start with beeper://attachment/"}},
		{"bad index", "beeper://attachment/$img/first",
			AttachmentContent{Error: "Invalid attachment URI format - missing or bad index"}},
		{"missing message", "beeper://attachment/$nope/0",
			AttachmentContent{Error: "Message not found or empty: $nope"}},
		{"index out of range", "beeper://attachment/$img/3",
			AttachmentContent{Error: "Attachment index out of range"}},
		{"negative index", "beeper://attachment/$img/-1",
			AttachmentContent{Error: "Attachment index out of range"}},
		{"payload without attachments", "beeper://attachment/$bare/0",
			AttachmentContent{Error: "Attachment index out of range"}},
		{"no url", "beeper://attachment/$img/1",
			AttachmentContent{Error: "Attachment has no URL"}},
		{"not on disk", "beeper://attachment/$img/0",
			AttachmentContent{Error: "Media file not found on disk", Type: "image", MimeType: "image/jpeg", AttachmentURL: "mxc://server/nothere"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want.URI = tt.uri
			got := env.Engine.ResolveAttachment(env.Ctx, tt.uri, true)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("undecodable image", func(t *testing.T) {
		got := env.Engine.ResolveAttachment(env.Ctx, "beeper://attachment/$img/2", true)
		if !strings.HasPrefix(got.Error, "Failed to process media file: ") || got.URI == "" {
			t.Errorf("content = %+v", got)
		}
	})
}

func TestResolveAttachmentMissingArchive(t *testing.T) {
	root := filepath.Join(t.TempDir(), "gone")
	engine := NewSQLiteEngine(archive.New(root), DefaultOptions(), nil)
	got := engine.ResolveAttachment(t.Context(), "beeper://attachment/$x/0", true)
	want := "Database not found: " + filepath.Join(root, "index.db")
	if got.Error != want {
		t.Errorf("error = %q, want %q", got.Error, want)
	}
}

func TestResolveAttachmentIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.WriteMedia("pic.png", testutil.PNG(t, 30, 20, color.NRGBA{G: 200, A: 255}))
	env.addAttachmentMessage("$img", map[string]any{"mimeType": "image/png", "url": "mxc://s/pic.png"})

	for _, optimize := range []bool{true, false} {
		first := env.Engine.ResolveAttachment(env.Ctx, "beeper://attachment/$img/0", optimize)
		second := env.Engine.ResolveAttachment(env.Ctx, "beeper://attachment/$img/0", optimize)
		if first.Error != "" {
			t.Fatalf("error: %s", first.Error)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("optimize=%v: results differ (-first +second):\n%s", optimize, diff)
		}
	}
}

func TestAttachmentURIsResolveFromMessages(t *testing.T) {
	env := newTestEnv(t)
	env.AddThread(testutil.Thread{ID: roomTiny, Title: "Tiny Chat"})
	env.WriteMedia("a.ogg", []byte("OggS"))
	env.WriteMedia("b.bin", []byte{1, 2, 3})
	env.addAttachmentMessage("$two",
		map[string]any{"mimeType": "audio/ogg", "url": "mxc://s/a.ogg"},
		map[string]any{"url": "mxc://s/b.bin"},
	)

	msgs := env.MustGetMessages(GetMessagesOptions{ChatID: roomTiny})
	if len(msgs) != 1 || len(msgs[0].Attachments) != 2 {
		t.Fatalf("messages = %+v", msgs)
	}
	for i, att := range msgs[0].Attachments {
		got := env.Engine.ResolveAttachment(env.Ctx, att.URI, true)
		if got.Error != "" {
			t.Fatalf("attachment %d: %s", i, got.Error)
		}
		if got.Type != att.Type || got.MimeType != att.MimeType {
			t.Errorf("attachment %d resolved as %s/%s, listed as %s/%s", i, got.Type, got.MimeType, att.Type, att.MimeType)
		}
	}
}
