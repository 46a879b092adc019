// Package tester holds the small generic assertions shared by package tests.
// Each one stops the test on failure.
package tester

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func fail(t *testing.T, msgAndArgs []any, format string, args ...any) {
	t.Helper()
	msg := fmt.Sprintf(format, args...)
	if len(msgAndArgs) > 0 {
		msg = fmt.Sprint(msgAndArgs...) + ": " + msg
	}
	t.Fatal(msg)
}

// Eq compares with reflect.DeepEqual so slices and structs work too.
func Eq[T any](t *testing.T, got, want T, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		fail(t, msgAndArgs, "got=%v want=%v", got, want)
	}
}

func True(t *testing.T, cond bool, msgAndArgs ...any) {
	t.Helper()
	if !cond {
		fail(t, msgAndArgs, "expected true")
	}
}

func False(t *testing.T, cond bool, msgAndArgs ...any) {
	t.Helper()
	if cond {
		fail(t, msgAndArgs, "expected false")
	}
}

func NoErr(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		fail(t, msgAndArgs, "unexpected error: %v", err)
	}
}

// ErrIs checks errors.Is(err, target). A nil target expects no error.
func ErrIs(t *testing.T, err, target error, msgAndArgs ...any) {
	t.Helper()
	if !errors.Is(err, target) {
		fail(t, msgAndArgs, "error %v is not %v", err, target)
	}
}

// Contains checks that s holds sub, printing the tail of s on failure.
func Contains(t *testing.T, s, sub string, msgAndArgs ...any) {
	t.Helper()
	if !strings.Contains(s, sub) {
		shown := s
		if len(shown) > 400 {
			shown = "..." + shown[len(shown)-400:]
		}
		fail(t, msgAndArgs, "%q not found in %q", sub, shown)
	}
}
