// Package errs defines the error taxonomy shared by the decode and
// collector pipelines: Truncated, Corrupt, Unsupported, Io.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error raised anywhere in the pipeline.
type Kind int

const (
	// Truncated means an unexpected EOF occurred mid-frame, mid-header,
	// or mid-payload.
	Truncated Kind = iota
	// Corrupt means a protobuf parse failure, unknown group type,
	// oversized header/blob, or an inconsistent decoded value.
	Corrupt
	// Unsupported means a required feature string or blob compression
	// variant this decoder does not implement.
	Unsupported
	// Io means the error was propagated from a ByteSource or
	// Decompressor.
	Io
)

func (k Kind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case Corrupt:
		return "corrupt"
	case Unsupported:
		return "unsupported"
	case Io:
		return "io"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind and a message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func new(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// NewTruncated builds a Truncated error.
func NewTruncated(msg string) error { return new(Truncated, msg, nil) }

// NewCorrupt builds a Corrupt error.
func NewCorrupt(msg string) error { return new(Corrupt, msg, nil) }

// NewCorruptf builds a Corrupt error with a formatted message.
func NewCorruptf(format string, args ...any) error {
	return new(Corrupt, fmt.Sprintf(format, args...), nil)
}

// NewUnsupported builds an Unsupported error.
func NewUnsupported(msg string) error { return new(Unsupported, msg, nil) }

// WrapIo wraps err as an Io error with context.
func WrapIo(msg string, err error) error {
	if err == nil {
		return nil
	}
	return new(Io, msg, err)
}

// WrapCorrupt wraps err as a Corrupt error with context.
func WrapCorrupt(msg string, err error) error {
	if err == nil {
		return nil
	}
	return new(Corrupt, msg, err)
}

// KindOf returns the Kind of err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
