package testutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

// AssertStrings compares a string slice against the expected values, in order.
func AssertStrings(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(want) == 0 && len(got) == 0 {
		return
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("strings mismatch (-want +got):\n%s", diff)
	}
}

// AssertValidUTF8 fails if s is not valid UTF-8.
func AssertValidUTF8(t *testing.T, s string) {
	t.Helper()
	if !utf8.ValidString(s) {
		t.Errorf("not valid UTF-8: %q", s)
	}
}

// AssertContainsAll reports every substring of subs missing from got in one error.
func AssertContainsAll(t *testing.T, got string, subs ...string) {
	t.Helper()
	var missing []string
	for _, s := range subs {
		if !strings.Contains(got, s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		t.Errorf("output is missing %q:\n%s", missing, got)
	}
}

// MustNoErr stops the test when a setup step fails.
func MustNoErr(t testing.TB, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}
