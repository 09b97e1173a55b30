// Package testutil provides test helpers for beeper-texts tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertStrings, etc.)
//   - fs_helpers.go: filesystem operations (WriteFile, MustExist)
//   - beeper.go: throw-away Beeper archives (index.db, megabridge.db, media)
//   - images.go: generated JPEG/PNG fixtures
package testutil
