package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func assertPerm(t *testing.T, path string, want os.FileMode) {
	t.Helper()
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	// umask may only remove bits.
	if got := info.Mode().Perm(); got&^want != 0 {
		t.Errorf("%s perm = %04o, has bits beyond %04o", path, got, want)
	}
}

func TestWritePrivate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	data := []byte("jpeg bytes")

	if err := WritePrivate(path, data); err != nil {
		t.Fatalf("WritePrivate: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("content = %q, want %q", got, data)
	}
	assertPerm(t, path, FileMode)
}

func TestWritePrivateCreatesParents(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "exports", "alice", "voice.ogg")

	if err := WritePrivate(path, []byte("ogg")); err != nil {
		t.Fatalf("WritePrivate: %v", err)
	}
	assertPerm(t, filepath.Join(base, "exports"), DirMode)
	assertPerm(t, filepath.Join(base, "exports", "alice"), DirMode)
	assertPerm(t, path, FileMode)
}

func TestWritePrivateTightensExistingFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX mode bits")
	}
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("old contents"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WritePrivate(path, []byte("new")); err != nil {
		t.Fatalf("WritePrivate: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if got := info.Mode().Perm(); got != FileMode {
		t.Errorf("perm = %04o, want %04o", got, FileMode)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("content = %q, want truncated %q", got, "new")
	}
}

func TestWritePrivateParentIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WritePrivate(filepath.Join(blocker, "out.jpg"), []byte("x")); err == nil {
		t.Error("expected error when a parent path is a regular file")
	}
}

func TestMissingDirs(t *testing.T) {
	base := t.TempDir()
	got := missingDirs(filepath.Join(base, "a", "b"))
	want := []string{filepath.Join(base, "a", "b"), filepath.Join(base, "a")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("missingDirs mismatch (-want +got):\n%s", diff)
	}
	if got := missingDirs(base); len(got) != 0 {
		t.Errorf("missingDirs(existing) = %v, want none", got)
	}
}
