// Package archive locates the files Beeper Desktop writes to disk and opens
// them read-only. The schema belongs to Beeper; nothing here writes to it.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrArchiveNotFound is returned when the archive root or its index.db is missing.
	ErrArchiveNotFound = errors.New("beeper archive not found")
	// ErrStoreNotFound is returned when no platform store matches a lookup.
	ErrStoreNotFound = errors.New("platform store not found")
)

// readOnlyParams keeps every connection snapshot-only. Beeper may be
// writing to the same files concurrently.
const readOnlyParams = "mode=ro&_busy_timeout=5000"

// Archive describes one Beeper Desktop data directory.
type Archive struct {
	Root      string
	IndexPath string
	MediaDir  string
}

// New returns an Archive rooted at root with the conventional layout.
func New(root string) *Archive {
	return &Archive{
		Root:      root,
		IndexPath: filepath.Join(root, "index.db"),
		MediaDir:  filepath.Join(root, "media"),
	}
}

// Check verifies that the archive root and primary store exist.
func (a *Archive) Check() error {
	info, err := os.Stat(a.Root)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrArchiveNotFound, a.Root)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrArchiveNotFound, a.Root)
	}
	if _, err := os.Stat(a.IndexPath); err != nil {
		return fmt.Errorf("%w: missing %s", ErrArchiveNotFound, a.IndexPath)
	}
	return nil
}

// OpenIndex opens the primary store. Callers own the returned handle and
// must close it when their operation finishes.
func (a *Archive) OpenIndex(ctx context.Context) (*sql.DB, error) {
	if err := a.Check(); err != nil {
		return nil, err
	}
	db, err := OpenReadOnly(ctx, a.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return db, nil
}

// PlatformStore is one bridge database, e.g. local-whatsapp/megabridge.db.
type PlatformStore struct {
	Name string // container directory name
	Path string
}

// PlatformStores lists the bridge databases under the archive root, sorted
// by directory name. A root without any is not an error.
func (a *Archive) PlatformStores() ([]PlatformStore, error) {
	entries, err := os.ReadDir(a.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, a.Root)
		}
		return nil, fmt.Errorf("read archive root: %w", err)
	}

	var stores []PlatformStore
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "local-") {
			continue
		}
		p := filepath.Join(a.Root, e.Name(), "megabridge.db")
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			continue
		}
		stores = append(stores, PlatformStore{Name: e.Name(), Path: p})
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].Name < stores[j].Name })
	return stores, nil
}

// StoresFor returns the platform stores whose directory name contains the
// lowercased platform label.
func (a *Archive) StoresFor(platform string) []PlatformStore {
	key := strings.ToLower(platform)
	if key == "" {
		return nil
	}
	stores, err := a.PlatformStores()
	if err != nil {
		return nil
	}
	var matched []PlatformStore
	for _, s := range stores {
		if strings.Contains(strings.ToLower(s.Name), key) {
			matched = append(matched, s)
		}
	}
	return matched
}

// StoreFor returns the first platform store matching platform.
func (a *Archive) StoreFor(platform string) (PlatformStore, error) {
	stores := a.StoresFor(platform)
	if len(stores) == 0 {
		return PlatformStore{}, fmt.Errorf("%w: %s", ErrStoreNotFound, platform)
	}
	return stores[0], nil
}

// OpenReadOnly opens a SQLite file for reading with a single connection.
func OpenReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	// Use file: URI to safely handle paths containing '?' or other special characters.
	dsn := (&url.URL{
		Scheme:   "file",
		OmitHost: true,
		Path:     path,
		RawQuery: readOnlyParams,
	}).String()
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// IsSQLiteError checks if err is a sqlite3.Error with a message containing substr.
// Handles both value (sqlite3.Error) and pointer (*sqlite3.Error) forms.
func IsSQLiteError(err error, substr string) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), substr)
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return strings.Contains(sqliteErrPtr.Error(), substr)
	}
	return false
}

// IsMissingSchema reports whether err means the table or column a query
// expected does not exist in this version of the archive.
func IsMissingSchema(err error) bool {
	return IsSQLiteError(err, "no such table") || IsSQLiteError(err, "no such column")
}
