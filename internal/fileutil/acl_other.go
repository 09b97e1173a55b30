//go:build !windows

package fileutil

// Mode bits already limit access on POSIX systems.
func restrictToCurrentUser(string) error { return nil }
