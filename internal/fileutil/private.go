// Package fileutil writes exported message content so that only the current
// user can read it. On Windows the POSIX mode bits are not enough, so files
// and directories it creates also get a DACL limited to the current user.
package fileutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// FileMode is applied to every file written by WritePrivate.
	FileMode os.FileMode = 0o600
	// DirMode is applied to parent directories WritePrivate creates.
	DirMode os.FileMode = 0o700
)

// WritePrivate writes data to path, creating missing parent directories.
// An existing file is truncated and tightened to FileMode.
// ACL failures are logged and do not fail the write.
func WritePrivate(path string, data []byte) error {
	dir := filepath.Dir(path)
	created := missingDirs(dir)
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return fmt.Errorf("fileutil: create %s: %w", dir, err)
	}
	for _, d := range created {
		restrict(d)
	}

	if err := os.WriteFile(path, data, FileMode); err != nil {
		return err
	}
	// WriteFile keeps the mode of a file that already existed.
	if err := os.Chmod(path, FileMode); err != nil {
		return fmt.Errorf("fileutil: chmod %s: %w", path, err)
	}
	restrict(path)
	return nil
}

// missingDirs lists dir and each ancestor that does not exist yet, leaf first.
func missingDirs(dir string) []string {
	var out []string
	p := filepath.Clean(dir)
	for p != "." && p != string(filepath.Separator) {
		if _, err := os.Stat(p); err == nil {
			break
		}
		out = append(out, p)
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	return out
}

func restrict(path string) {
	if err := restrictToCurrentUser(path); err != nil {
		slog.Warn("fileutil: could not restrict access", "path", path, "error", err)
	}
}
