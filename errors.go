package main

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// A template, the source root or the blog directory is missing.
	// Fatal to the whole run.
	ConfigurationError ErrorKind = iota + 1
	MalformedFilename
	InvalidDate
	MissingTitle
	InvalidFileType
	CleanAborted
	InvalidCommand
	// Two sources map to the same output, or an output would overwrite
	// its own source.
	OutputConflict
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigurationError:
		return "configuration error"
	case MalformedFilename:
		return "malformed filename"
	case InvalidDate:
		return "invalid date"
	case MissingTitle:
		return "missing title"
	case InvalidFileType:
		return "invalid file type"
	case CleanAborted:
		return "clean aborted"
	case InvalidCommand:
		return "invalid command"
	case OutputConflict:
		return "output conflict"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the one error type the generator reports. Path names the
// offending file or directory, if any.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: MissingTitle})
// works regardless of path and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Path == "" && t.Err == nil
}

func newError(kind ErrorKind, path string, format string, args ...any) *Error {
	var err error
	if format != "" {
		err = fmt.Errorf(format, args...)
	}
	return &Error{Kind: kind, Path: path, Err: err}
}

// IsKind reports whether any error in err's chain is an *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Kind == kind {
		return true
	}
	return IsKind(e.Err, kind)
}
