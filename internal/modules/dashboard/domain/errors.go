package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPointerSyntax marks a pointer path that is not valid RFC 6901 syntax.
	ErrPointerSyntax = errors.New("malformed pointer")
	// ErrPointerNotFound marks a pointer path that does not exist in the document.
	ErrPointerNotFound = errors.New("pointer target not found")
	// ErrPointerType marks a pointer target whose value cannot be coerced to the field type.
	ErrPointerType = errors.New("pointer target has wrong type")

	// ErrMalformedMessage is returned for frames that do not match any known message shape.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrInvalidLayout is returned by Layout.Validate.
	ErrInvalidLayout = errors.New("invalid layout")
	// ErrInvalidPatch is returned when a patch body is not an RFC 6902 operation list.
	ErrInvalidPatch = errors.New("invalid patch")
)

// PointerResolutionError reports a Value pointer that could not be resolved.
type PointerResolutionError struct {
	Path   string
	Reason error
	Detail string
}

func (e *PointerResolutionError) Error() string {
	msg := fmt.Sprintf("resolve pointer %q: %v", e.Path, e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *PointerResolutionError) Unwrap() error { return e.Reason }

func pointerError(path string, reason error, format string, args ...any) *PointerResolutionError {
	return &PointerResolutionError{Path: path, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// PatchApplicationError reports the first failing operation of a rejected patch.
// Index is 1-based.
type PatchApplicationError struct {
	Index int
	Op    string
	Path  string
	Err   error
}

func (e *PatchApplicationError) Error() string {
	return fmt.Sprintf("patch operation %d (%s %s) failed: %v", e.Index, e.Op, e.Path, e.Err)
}

func (e *PatchApplicationError) Unwrap() error { return e.Err }

// UnknownLayoutVersionError is returned when a layout envelope carries a version tag
// this receiver does not understand.
type UnknownLayoutVersionError struct {
	Version string
}

func (e *UnknownLayoutVersionError) Error() string {
	return fmt.Sprintf("unknown layout version %q", e.Version)
}

// ProtocolOrderingError is returned when a data patch cannot be applied because the
// receiver has no trustworthy base document.
type ProtocolOrderingError struct {
	Reason string
}

func (e *ProtocolOrderingError) Error() string {
	return "protocol ordering: " + e.Reason
}

// UnknownNodeKindError reports a node discriminator that is not part of the union.
type UnknownNodeKindError struct {
	Tag  string
	Kind string
}

func (e *UnknownNodeKindError) Error() string {
	return fmt.Sprintf("unknown %s kind %q", e.Tag, e.Kind)
}

// ValidationError collects every problem found by Layout.Validate.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidLayout, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidLayout }
