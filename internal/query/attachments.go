package query

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tetmin/mcp-beeper-texts/internal/archive"
)

// ParseAttachmentURI splits beeper://attachment/{messageID}/{index}.
// The message id may itself contain slashes; the index is the last segment.
func ParseAttachmentURI(uri string) (messageID string, index int, err error) {
	rest, ok := strings.CutPrefix(uri, attachmentScheme)
	if !ok {
		return "", 0, fmt.Errorf("invalid attachment URI format - must start with %s", attachmentScheme)
	}
	slash := strings.LastIndex(rest, "/")
	if slash <= 0 {
		return "", 0, errors.New("invalid attachment URI format - missing or bad index")
	}
	index, err = strconv.Atoi(rest[slash+1:])
	if err != nil {
		return "", 0, errors.New("invalid attachment URI format - missing or bad index")
	}
	return rest[:slash], index, nil
}

// mediaSource is a located attachment body.
type mediaSource struct {
	path string // empty for inline data
	data []byte // nil until read
	mime string // overrides the attachment's MIME type when set
}

func (m *mediaSource) bytes() ([]byte, error) {
	if m.data == nil {
		data, err := os.ReadFile(m.path)
		if err != nil {
			return nil, err
		}
		m.data = data
	}
	return m.data, nil
}

func (m *mediaSource) size() int64 {
	if m.data != nil {
		return int64(len(m.data))
	}
	if info, err := os.Stat(m.path); err == nil {
		return info.Size()
	}
	return 0
}

// ResolveAttachment re-reads the owning message, re-derives its attachment
// list and returns the indexed item's content. It never fails outright:
// problems are reported in the Error field alongside the URI.
func (e *SQLiteEngine) ResolveAttachment(ctx context.Context, uri string, optimize bool) AttachmentContent {
	fail := func(format string, args ...any) AttachmentContent {
		return AttachmentContent{Error: fmt.Sprintf(format, args...), URI: uri}
	}

	messageID, index, err := ParseAttachmentURI(uri)
	if err != nil {
		return fail("%s", capitalize(err.Error()))
	}

	db, err := e.archive.OpenIndex(ctx)
	if err != nil {
		if errors.Is(err, archive.ErrArchiveNotFound) {
			return fail("Database not found: %s", e.archive.IndexPath)
		}
		return fail("Database error: %v", err)
	}
	defer db.Close()

	var payload sql.NullString
	err = db.QueryRowContext(ctx,
		"SELECT message FROM mx_room_messages WHERE eventID = ? LIMIT 1", messageID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && payload.String == "") {
		return fail("Message not found or empty: %s", messageID)
	}
	if err != nil {
		return fail("Database error: %v", err)
	}

	items := attachmentItems(payload.String)
	if index < 0 || index >= len(items) {
		return fail("Attachment index out of range")
	}
	item := items[index]
	if item == nil {
		item = payloadDoc{}
	}

	mime := attachmentMime(item)
	kind := attachmentKind(mime)
	filename := item.first("fileName", "filename")
	srcURL := item.first("srcURL", "url", "href")
	mediaID := item.first("id", "mxc")
	if srcURL == "" && mediaID == "" {
		return fail("Attachment has no URL")
	}

	src := e.locateMedia(srcURL, mediaID)
	if src == nil {
		return AttachmentContent{
			Error:         "Media file not found on disk",
			Type:          kind,
			MimeType:      mime,
			AttachmentURL: srcURL,
			URI:           uri,
		}
	}
	if src.mime != "" {
		mime, kind = src.mime, "image"
	}
	if filename == "" && src.path != "" {
		filename = filepath.Base(src.path)
	}

	content, err := e.renderMedia(src, kind, mime, filename, optimize)
	if err != nil {
		return fail("Failed to process media file: %v", err)
	}
	return content
}

// locateMedia finds the attachment body: an inline data URI, a local path,
// or a search of the media directory by file name or media id.
func (e *SQLiteEngine) locateMedia(srcURL, mediaID string) *mediaSource {
	lower := strings.ToLower(srcURL)
	if strings.HasPrefix(lower, "data:image/") && strings.Contains(lower, ";base64,") {
		if src := decodeDataURI(srcURL); src != nil {
			return src
		}
	}

	if srcURL != "" {
		for _, p := range localPathCandidates(srcURL) {
			if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
				return &mediaSource{path: p}
			}
		}
	}

	candidate := ""
	if srcURL != "" {
		candidate = srcURL[strings.LastIndex(srcURL, "/")+1:]
		candidate, _, _ = strings.Cut(candidate, "?")
	}
	if candidate == "" {
		candidate = mediaID
	}
	if candidate == "" {
		return nil
	}
	if p := findMedia(e.archive.MediaDir, candidate); p != "" {
		return &mediaSource{path: p}
	}
	return nil
}

func decodeDataURI(dataURI string) *mediaSource {
	header, encoded, ok := strings.Cut(dataURI, ",")
	if !ok {
		return nil
	}
	mime := strings.TrimPrefix(header, "data:")
	mime, _, _ = strings.Cut(mime, ";")
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil
		}
	}
	return &mediaSource{data: data, mime: mime}
}

// localPathCandidates returns the filesystem paths a URL could name.
func localPathCandidates(srcURL string) []string {
	if rest, ok := strings.CutPrefix(srcURL, "file://"); ok {
		paths := []string{rest}
		if unescaped, err := url.PathUnescape(rest); err == nil && unescaped != rest {
			paths = append(paths, unescaped)
		}
		return paths
	}
	if strings.Contains(srcURL, "://") {
		return nil
	}
	return []string{srcURL}
}

// findMedia walks root in lexical order for a file named exactly name,
// falling back to the first file whose name contains it.
func findMedia(root, name string) string {
	var partial string
	var exact string
	errFound := errors.New("found")
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		base := d.Name()
		if base == name {
			exact = p
			return errFound
		}
		if partial == "" && strings.Contains(base, name) {
			partial = p
		}
		return nil
	})
	if exact != "" {
		return exact
	}
	return partial
}

// renderMedia turns a located body into inline base64 or a path reference.
func (e *SQLiteEngine) renderMedia(src *mediaSource, kind, mime, filename string, optimize bool) (AttachmentContent, error) {
	switch {
	case kind == "image" && optimize:
		data, err := src.bytes()
		if err != nil {
			return AttachmentContent{}, err
		}
		out, err := optimizeImage(data, e.opts.ImageMaxDimension, e.opts.ImageQuality)
		if err != nil {
			return AttachmentContent{}, err
		}
		return AttachmentContent{
			Type:     "image",
			MimeType: "image/jpeg",
			Base64:   base64.StdEncoding.EncodeToString(out),
		}, nil

	case (kind == "image" || kind == "audio") && (src.path == "" || src.size() <= e.opts.MaxInlineBytes):
		data, err := src.bytes()
		if err != nil {
			return AttachmentContent{}, err
		}
		return AttachmentContent{
			Type:     kind,
			MimeType: mime,
			Base64:   base64.StdEncoding.EncodeToString(data),
			Filename: filename,
		}, nil

	default:
		if src.path == "" {
			return AttachmentContent{}, errors.New("inline data has no file path")
		}
		abs, err := filepath.Abs(src.path)
		if err != nil {
			abs = src.path
		}
		return AttachmentContent{Type: kind, MimeType: mime, Filepath: abs}, nil
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
