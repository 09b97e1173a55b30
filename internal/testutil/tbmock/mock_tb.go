// Package tbmock provides a testing.TB double for checking that fixture
// helpers fail fast.
package tbmock

import (
	"fmt"
	"testing"
)

// halt is panicked to stop the helper, standing in for runtime.Goexit.
type halt struct{ msg string }

// MockTB records fatal calls instead of ending the test. Methods it does not
// override go to the wrapped TB.
type MockTB struct {
	testing.TB
	failed   bool
	FatalMsg string
}

// NewMockTB wraps t.
func NewMockTB(t testing.TB) *MockTB {
	return &MockTB{TB: t}
}

// Failed reports whether a fatal method was called.
func (m *MockTB) Failed() bool { return m.failed }

func (m *MockTB) Helper()                           {}
func (m *MockTB) Errorf(format string, args ...any) {}
func (m *MockTB) Cleanup(fn func())                 {}

func (m *MockTB) Fatalf(format string, args ...any) {
	m.stop(fmt.Sprintf(format, args...))
}

func (m *MockTB) Fatal(args ...any) {
	m.stop(fmt.Sprint(args...))
}

func (m *MockTB) FailNow() {
	m.stop("")
}

func (m *MockTB) stop(msg string) {
	m.failed = true
	m.FatalMsg = msg
	panic(halt{msg})
}

// ExpectFatal runs fn, absorbing a MockTB halt. Other panics propagate.
func ExpectFatal(m *MockTB, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(halt); !ok {
				panic(r)
			}
		}
	}()
	fn()
}
