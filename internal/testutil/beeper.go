package testutil

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// indexSchema is the subset of Beeper Desktop's index.db the query layer reads.
const indexSchema = `
CREATE TABLE threads (threadID TEXT PRIMARY KEY, thread TEXT, timestamp INTEGER);
CREATE TABLE breadcrumbs (id TEXT PRIMARY KEY, lastOpenTime INTEGER);
CREATE TABLE mx_room_messages (
	roomID TEXT,
	senderContactID TEXT,
	message TEXT,
	timestamp INTEGER,
	isSentByMe INTEGER,
	type TEXT,
	inReplyToID TEXT,
	eventID TEXT,
	hsOrder INTEGER
);
`

// bridgeSchema is the subset of a megabridge.db the query layer reads.
const bridgeSchema = `
CREATE TABLE portal (mxid TEXT, other_user_id TEXT, room_type TEXT, parent_id TEXT);
CREATE TABLE ghost (id TEXT, name TEXT);
`

// Participant is one entry of a thread's participants.items list.
type Participant struct {
	ID       string `json:"id"`
	FullName string `json:"fullName,omitempty"`
}

// Thread describes one row of the threads table.
type Thread struct {
	ID                string
	Title             string
	Type              string // "single" or "group"; empty omits the key
	LowPriority       bool
	MarkedUnread      bool
	Unread            bool
	ArchivedUpto      string // non-empty marks the thread archived
	ArchivedUpToOrder *int64
	Tags              []string
	Participants      []Participant
	LastOpen          *int64 // breadcrumbs.lastOpenTime; nil writes no breadcrumb
}

// Message describes one row of mx_room_messages.
type Message struct {
	Room      string
	Sender    string
	Payload   string // JSON object or bare text
	Timestamp int64
	SentByMe  bool
	Type      string // defaults to TEXT
	InReplyTo string
	EventID   string
	HSOrder   *int64
}

// ArchiveBuilder writes a throw-away Beeper archive under t.TempDir().
type ArchiveBuilder struct {
	t     *testing.T
	Root  string
	index *sql.DB
}

// NewArchive creates an archive root with an empty index.db and media dir.
func NewArchive(t *testing.T) *ArchiveBuilder {
	t.Helper()
	root := t.TempDir()
	MustMkdir(t, filepath.Join(root, "media"))

	db := openFixtureDB(t, filepath.Join(root, "index.db"), indexSchema)
	return &ArchiveBuilder{t: t, Root: root, index: db}
}

func openFixtureDB(t *testing.T, path, schema string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	MustNoErr(t, err, "open fixture db")
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(schema)
	MustNoErr(t, err, "create fixture schema")
	return db
}

// IndexPath returns the path of the fixture's index.db.
func (b *ArchiveBuilder) IndexPath() string { return filepath.Join(b.Root, "index.db") }

// MediaDir returns the fixture's media directory.
func (b *ArchiveBuilder) MediaDir() string { return filepath.Join(b.Root, "media") }

// Exec runs an arbitrary statement against index.db, for rows the typed
// helpers cannot express.
func (b *ArchiveBuilder) Exec(query string, args ...any) {
	b.t.Helper()
	_, err := b.index.Exec(query, args...)
	MustNoErr(b.t, err, "exec fixture statement")
}

// AddThread inserts a thread (and its breadcrumb when LastOpen is set).
func (b *ArchiveBuilder) AddThread(th Thread) *ArchiveBuilder {
	b.t.Helper()

	doc := map[string]any{
		"isLowPriority":  boolInt(th.LowPriority),
		"isMarkedUnread": boolInt(th.MarkedUnread),
		"isUnread":       boolInt(th.Unread),
	}
	if th.Title != "" {
		doc["title"] = th.Title
	}
	if th.Type != "" {
		doc["type"] = th.Type
	}
	if th.Participants != nil {
		doc["participants"] = map[string]any{"items": th.Participants}
	}
	tags := th.Tags
	if tags == nil {
		tags = []string{}
	}
	extra := map[string]any{"tags": tags}
	if th.ArchivedUpto != "" {
		extra["isArchivedUpto"] = th.ArchivedUpto
	}
	if th.ArchivedUpToOrder != nil {
		extra["isArchivedUpToOrder"] = *th.ArchivedUpToOrder
	}
	doc["extra"] = extra

	raw, err := json.Marshal(doc)
	MustNoErr(b.t, err, "marshal thread")
	b.Exec("INSERT INTO threads (threadID, thread, timestamp) VALUES (?, ?, 0)", th.ID, string(raw))
	if th.LastOpen != nil {
		b.Exec("INSERT INTO breadcrumbs (id, lastOpenTime) VALUES (?, ?)", th.ID, *th.LastOpen)
	}
	return b
}

// AddMessage inserts a message row.
func (b *ArchiveBuilder) AddMessage(m Message) *ArchiveBuilder {
	b.t.Helper()
	typ := m.Type
	if typ == "" {
		typ = "TEXT"
	}
	var inReplyTo, eventID, hsOrder any
	if m.InReplyTo != "" {
		inReplyTo = m.InReplyTo
	}
	if m.EventID != "" {
		eventID = m.EventID
	}
	if m.HSOrder != nil {
		hsOrder = *m.HSOrder
	}
	var payload any
	if m.Payload != "" {
		payload = m.Payload
	}
	b.Exec(`INSERT INTO mx_room_messages
		(roomID, senderContactID, message, timestamp, isSentByMe, type, inReplyToID, eventID, hsOrder)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Room, m.Sender, payload, m.Timestamp, boolInt(m.SentByMe), typ, inReplyTo, eventID, hsOrder)
	return b
}

// WriteMedia writes a file under the media directory and returns its path.
func (b *ArchiveBuilder) WriteMedia(rel string, content []byte) string {
	b.t.Helper()
	return WriteFile(b.t, b.MediaDir(), rel, content)
}

// BridgeBuilder writes one local-<platform>/megabridge.db.
type BridgeBuilder struct {
	t  *testing.T
	db *sql.DB
}

// AddBridge creates <root>/<dir>/megabridge.db, e.g. dir "local-whatsapp".
func (b *ArchiveBuilder) AddBridge(dir string) *BridgeBuilder {
	b.t.Helper()
	d := filepath.Join(b.Root, dir)
	MustMkdir(b.t, d)
	db := openFixtureDB(b.t, filepath.Join(d, "megabridge.db"), bridgeSchema)
	return &BridgeBuilder{t: b.t, db: db}
}

// AddPortal inserts a portal row. Empty otherUserID and parentID become NULL.
func (bb *BridgeBuilder) AddPortal(mxid, otherUserID, roomType, parentID string) *BridgeBuilder {
	bb.t.Helper()
	_, err := bb.db.Exec("INSERT INTO portal (mxid, other_user_id, room_type, parent_id) VALUES (?, ?, ?, ?)",
		mxid, nullIfEmpty(otherUserID), roomType, nullIfEmpty(parentID))
	MustNoErr(bb.t, err, "insert portal")
	return bb
}

// AddGhost inserts a ghost row.
func (bb *BridgeBuilder) AddGhost(id, name string) *BridgeBuilder {
	bb.t.Helper()
	_, err := bb.db.Exec("INSERT INTO ghost (id, name) VALUES (?, ?)", id, name)
	MustNoErr(bb.t, err, "insert ghost")
	return bb
}

// Int64 returns a pointer to v, for the optional fixture columns.
func Int64(v int64) *int64 { return &v }

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
