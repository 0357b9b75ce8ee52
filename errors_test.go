package main

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("rendering: %w", &Error{Kind: MissingTitle, Path: "_src/about.md", Err: errors.New("no <h1> element")})

	if !IsKind(err, MissingTitle) {
		t.Errorf("IsKind(MissingTitle) = false for %v", err)
	}
	if IsKind(err, MalformedFilename) {
		t.Errorf("IsKind(MalformedFilename) = true for %v", err)
	}
	if !errors.Is(err, &Error{Kind: MissingTitle}) {
		t.Errorf("errors.Is does not match by kind")
	}
	if IsKind(errors.New("plain"), MissingTitle) || IsKind(nil, MissingTitle) {
		t.Errorf("IsKind matched a plain error")
	}
	if got, want := err.Error(), "rendering: _src/about.md: missing title: no <h1> element"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := &Error{Kind: ConfigurationError, Path: "_src/page.tmpl", Err: fs.ErrNotExist}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("cause not reachable through Unwrap")
	}
	nested := &Error{Kind: CleanAborted, Err: err}
	if !IsKind(nested, ConfigurationError) {
		t.Errorf("IsKind does not look past the outer *Error")
	}
}

func TestErrorKindString(t *testing.T) {
	for kind, want := range map[ErrorKind]string{
		ConfigurationError: "configuration error",
		InvalidFileType:    "invalid file type",
		OutputConflict:     "output conflict",
		ErrorKind(42):      "ErrorKind(42)",
	} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(kind), got, want)
		}
	}
}
