package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tetmin/mcp-beeper-texts/internal/textutil"
)

const (
	attachmentScheme = "beeper://attachment/"
	defaultMimeType  = "application/octet-stream"
)

// payloadDoc is a message payload decoded as a JSON object. Beeper writes
// different keys per message type and bridge, so every read is optional.
type payloadDoc map[string]any

// parsePayload decodes payload when it looks like a JSON object.
// Bare text, arrays and malformed JSON yield nil.
func parsePayload(payload string) payloadDoc {
	trimmed := strings.TrimLeft(payload, " \t\r\n")
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var doc payloadDoc
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil
	}
	return doc
}

// str returns the string stored under key, and whether one was present.
func (d payloadDoc) str(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}

// first returns the first non-empty string among keys.
func (d payloadDoc) first(keys ...string) string {
	for _, k := range keys {
		if v, ok := d[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// strOr returns the string under key, falling back to def when absent.
func (d payloadDoc) strOr(key, def string) string {
	if v, ok := d.str(key); ok {
		return v
	}
	return def
}

// ExtractText derives display text from a payload by message type.
// The result is never empty for non-text types that carry a JSON payload.
func ExtractText(payload, declaredType string) string {
	if payload == "" {
		return ""
	}
	typ := strings.ToUpper(declaredType)
	if typ == "" {
		typ = TypeText
	}

	doc := parsePayload(payload)
	if doc == nil {
		// Already plain text, e.g. a value lifted out of the JSON by SQL.
		return textutil.EnsureUTF8(payload)
	}

	switch typ {
	case TypeText:
		if v, ok := doc.str("body"); ok {
			return v
		}
		return doc.strOr("text", "")
	case TypeImage, TypeVideo:
		placeholder := "[Image]"
		if typ == TypeVideo {
			placeholder = "[Video]"
		}
		if v, ok := doc.str("text"); ok {
			return v
		}
		return doc.strOr("body", placeholder)
	case TypeAudio:
		if url := doc.strOr("url", ""); url != "" {
			return fmt.Sprintf("[Audio: %s]", url)
		}
		return "[Audio message]"
	case TypeFile:
		name := doc.strOr("filename", "file")
		if url := doc.strOr("url", ""); url != "" {
			return fmt.Sprintf("[File: %s - %s]", name, url)
		}
		return fmt.Sprintf("[File: %s]", name)
	case TypeLocation:
		if geo := doc.strOr("geo_uri", ""); geo != "" {
			return fmt.Sprintf("[Location: %s]", geo)
		}
		return "[Location]"
	case TypeContact:
		return fmt.Sprintf("[Contact: %s]", doc.strOr("display_name", "Contact"))
	case TypeSticker:
		if url := doc.strOr("url", ""); url != "" {
			return fmt.Sprintf("[Sticker: %s]", url)
		}
		return "[Sticker]"
	default:
		if v, ok := doc.str("body"); ok {
			return v
		}
		return doc.strOr("text", "["+typ+"]")
	}
}

// attachmentItems returns the raw attachments array of a payload. Entries
// keep their positions, so an index into the result is the index used in
// attachment URIs. Non-object entries come back as nil.
func attachmentItems(payload string) []payloadDoc {
	doc := parsePayload(payload)
	if doc == nil {
		return nil
	}
	raw, ok := doc["attachments"].([]any)
	if !ok {
		return nil
	}
	items := make([]payloadDoc, len(raw))
	for i, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			items[i] = m
		}
	}
	return items
}

// attachmentMime returns an item's MIME type, defaulting to octet-stream.
func attachmentMime(item payloadDoc) string {
	if mime := item.first("mimeType", "mimetype"); mime != "" {
		return mime
	}
	return defaultMimeType
}

// attachmentKind maps a MIME type to image, audio, video or file.
func attachmentKind(mime string) string {
	for _, kind := range []string{"image", "audio", "video"} {
		if strings.HasPrefix(mime, kind+"/") {
			return kind
		}
	}
	return "file"
}

// AttachmentURI builds the stable reference to attachment index of messageID.
func AttachmentURI(messageID string, index int) string {
	return fmt.Sprintf("%s%s/%d", attachmentScheme, messageID, index)
}

// ExtractAttachments lists the attachments of a payload in array order.
// Malformed payloads and non-object entries yield nothing.
func ExtractAttachments(payload, messageID string) []MessageAttachment {
	items := attachmentItems(payload)
	var out []MessageAttachment
	for i, item := range items {
		if item == nil {
			continue
		}
		mime := attachmentMime(item)
		att := MessageAttachment{
			URI:      AttachmentURI(messageID, i),
			Type:     attachmentKind(mime),
			MimeType: mime,
		}
		if d, ok := item["duration"].(float64); ok {
			att.Duration = &d
		}
		out = append(out, att)
	}
	return out
}
