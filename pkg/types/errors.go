package types

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying ParseError kinds, wrapped by *ParseError the
// same way swiftcsv wraps ErrBareQuote/ErrUnterminatedQuote/ErrorFieldCount
// in its own *ParseError.
var (
	ErrUnexpectedEOF        = errors.New("unexpected EOF while parsing quoted field")
	ErrMalformedQuotedField = errors.New("malformed quoted field")
	ErrBufferLimitExceeded  = errors.New("buffer limit exceeded")
	ErrFieldCountExceeded   = errors.New("field count limit exceeded")
)

// ParseError is a fatal syntactic or resource-limit error raised by the
// Lexer or Indexer. It carries the Position of the offending character (or
// the first byte of the offending field) and the configured Source label.
type ParseError struct {
	Position Position
	Source   string
	Err      error
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	src := e.Source
	if src == "" {
		src = "<input>"
	}
	return fmt.Sprintf("%s: parse error at line %d, column %d (offset %d): %v",
		src, e.Position.Line, e.Position.Column, e.Position.Offset, e.Err)
}

// Unwrap lets errors.Is/errors.As see through to the sentinel Err.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// InvalidOptionError is raised eagerly at construction time, never
// mid-stream.
type InvalidOptionError struct {
	Reason string
}

func (e *InvalidOptionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid option: %s", e.Reason)
}

// AbortError is returned when an AbortSignal fires with a non-timeout
// origin.
type AbortError struct {
	Origin string
}

func (e *AbortError) Error() string {
	origin := e.Origin
	if origin == "" {
		origin = "unspecified"
	}
	return fmt.Sprintf("aborted (%s)", origin)
}

// TimeoutError is returned when an AbortSignal fires because a timer
// elapsed. The core does not distinguish it from AbortError beyond this
// tag, per spec.md §5.
type TimeoutError struct {
	Origin string
}

func (e *TimeoutError) Error() string {
	origin := e.Origin
	if origin == "" {
		origin = "unspecified"
	}
	return fmt.Sprintf("timeout (%s)", origin)
}

// ErrFromSignal inspects s and returns the appropriate AbortError or
// TimeoutError, or nil if s has not fired.
func ErrFromSignal(s *AbortSignal) error {
	if s == nil || !s.Aborted() {
		return nil
	}
	if s.IsTimeout() {
		return &TimeoutError{Origin: s.origin}
	}
	return &AbortError{Origin: s.origin}
}
