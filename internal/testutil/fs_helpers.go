package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes content to dir/name, creating parent directories.
// name must stay inside dir; absolute or escaping paths fail the test.
func WriteFile(t testing.TB, dir, name string, content []byte) string {
	t.Helper()

	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		t.Fatalf("WriteFile: path must be relative: %s", name)
	}
	path := filepath.Join(dir, name)
	if rel, err := filepath.Rel(dir, path); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		t.Fatalf("WriteFile: path escapes directory: %s", name)
	}

	MustMkdir(t, filepath.Dir(path))
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

// MustMkdir creates dir and its parents.
func MustMkdir(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
}

// MustExist fails the test if the path does not exist or cannot be accessed.
func MustExist(t testing.TB, path string) {
	t.Helper()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}
