// Package types defines the shared value types used by the lexer, assembler,
// and indexer: tokens, positions, records, and the options shared across all
// three constructors.
package types

import "fmt"

// TokenKind tags the three kinds of token the lexer and indexer emit.
type TokenKind int

const (
	// Field is an unescaped field body: surrounding quotes stripped, doubled
	// quotes collapsed.
	Field TokenKind = iota
	// FieldDelimiter carries the configured delimiter literal.
	FieldDelimiter
	// RecordDelimiter carries "\n" or "\r\n".
	RecordDelimiter
)

// String implements fmt.Stringer for diagnostic output.
func (k TokenKind) String() string {
	switch k {
	case Field:
		return "Field"
	case FieldDelimiter:
		return "FieldDelimiter"
	case RecordDelimiter:
		return "RecordDelimiter"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Position is a 1-based line/column, 0-based byte/char offset into the
// logical stream.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Location bounds a token's source extent and names the row it begins in.
type Location struct {
	Start     Position
	End       Position
	RowNumber int
}

// Token is an immutable value emitted in source order by the Lexer or by
// the Separator Indexer's token materializer.
type Token struct {
	Kind     TokenKind
	Value    string
	Location Location
}

// Record is an ordered header-name -> field-string mapping. Header ordering
// mirrors the header row; Names preserves that order, Fields holds the
// associated values.
type Record struct {
	Names  []string
	Fields []string
}

// Get returns the field value for name and whether that name exists in the
// record's header. A duplicated header name resolves to its last-assigned
// value, matching the assembler's last-wins rule.
func (r Record) Get(name string) (string, bool) {
	found := false
	var value string
	for i, n := range r.Names {
		if n == name {
			value = r.Fields[i]
			found = true
		}
	}
	return value, found
}

// Map materializes the record as a plain map. Duplicate header names
// collapse to their last-assigned value, matching the assembler's
// last-wins rule.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.Names))
	for i, n := range r.Names {
		m[n] = r.Fields[i]
	}
	return m
}

// AbortSignal is a one-shot, concurrency-safe cancellation flag. It may be
// shared across a Lexer, Assembler, Indexer, and their transform adapters.
// Firing is monotonic: once Fire is called, Aborted always reports true.
type AbortSignal struct {
	fired    chan struct{}
	once     doOnce
	timeout  bool
	origin   string
	callback []func()
}

type doOnce struct {
	done bool
}

// NewAbortSignal returns a signal that has not fired.
func NewAbortSignal() *AbortSignal {
	return &AbortSignal{fired: make(chan struct{})}
}

// Fire transitions the signal to aborted. Subsequent calls are no-ops.
// origin labels the cause ("timeout" produces a Timeout error downstream,
// anything else produces an Aborted error).
func (s *AbortSignal) Fire(origin string) {
	if s == nil || s.once.done {
		return
	}
	s.once.done = true
	s.origin = origin
	s.timeout = origin == "timeout"
	close(s.fired)
	for _, cb := range s.callback {
		cb()
	}
}

// Aborted reports, synchronously and without blocking, whether the signal
// has already fired.
func (s *AbortSignal) Aborted() bool {
	if s == nil {
		return false
	}
	select {
	case <-s.fired:
		return true
	default:
		return false
	}
}

// IsTimeout reports whether the firing origin was a timeout. Only
// meaningful once Aborted() is true.
func (s *AbortSignal) IsTimeout() bool {
	return s != nil && s.timeout
}

// OnAbort registers a callback to run (synchronously, once) when the signal
// fires. If the signal has already fired, cb runs immediately.
func (s *AbortSignal) OnAbort(cb func()) {
	if s == nil {
		return
	}
	if s.Aborted() {
		cb()
		return
	}
	s.callback = append(s.callback, cb)
}

// Done returns a channel closed when the signal fires, for use in a select
// alongside context.Context-based code at the call site.
func (s *AbortSignal) Done() <-chan struct{} {
	if s == nil {
		ch := make(chan struct{})
		return ch
	}
	return s.fired
}

// Options is the validated, immutable configuration shared by the Lexer,
// Assembler, and Indexer constructors. Construction of any of the three
// calls Validate and fails fast; options are never read from ambient state
// once constructed.
type Options struct {
	// Delimiter is the field separator. Must be a single Unicode scalar for
	// the Lexer, and additionally a single ASCII byte for the Indexer.
	Delimiter rune
	// Quotation is the field-quote character. Must differ from Delimiter;
	// the Indexer additionally requires it to be ASCII.
	Quotation rune
	// Header, if non-nil, skips header acquisition in the Assembler and
	// uses this list; the first record seen is then treated as data.
	Header []string
	// MaxBufferSize bounds the Lexer/Indexer's accumulated buffer.
	MaxBufferSize int
	// MaxFieldCount bounds fields per record.
	MaxFieldCount int
	// Signal, if non-nil, is checked for cancellation/timeout.
	Signal *AbortSignal
	// Source labels the input in error messages.
	Source string
	// StrictQuoting rejects an unescaped quotation character inside an
	// unquoted field instead of tolerating it (see SPEC_FULL.md §9).
	StrictQuoting bool
}

const (
	defaultMaxBufferSize = 10 << 20 // 10 MiB
	defaultMaxFieldCount = 1000
)

// WithDefaults returns a copy of o with zero-valued fields replaced by their
// documented defaults. It does not validate the result.
func (o Options) WithDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.Quotation == 0 {
		o.Quotation = '"'
	}
	if o.MaxBufferSize == 0 {
		o.MaxBufferSize = defaultMaxBufferSize
	}
	if o.MaxFieldCount == 0 {
		o.MaxFieldCount = defaultMaxFieldCount
	}
	return o
}

// Validate checks the character-class configuration invariants spec.md §3
// requires, after defaults have been applied. It never inspects stream
// content; it runs once, at construction.
func (o Options) Validate() error {
	if o.Delimiter == o.Quotation {
		return &InvalidOptionError{Reason: "delimiter must differ from quotation"}
	}
	if o.Delimiter == '\r' || o.Delimiter == '\n' {
		return &InvalidOptionError{Reason: "delimiter must not be CR or LF"}
	}
	if o.MaxBufferSize < 0 {
		return &InvalidOptionError{Reason: "maxBufferSize must not be negative"}
	}
	if o.MaxFieldCount < 0 {
		return &InvalidOptionError{Reason: "maxFieldCount must not be negative"}
	}
	return nil
}

// ValidateASCII additionally requires Delimiter and Quotation to each be a
// single ASCII byte, the stricter constraint the Indexer's byte-oriented
// backend imposes.
func (o Options) ValidateASCII() error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.Delimiter > 127 {
		return &InvalidOptionError{Reason: "delimiter must be ASCII for the separator indexer"}
	}
	if o.Quotation > 127 {
		return &InvalidOptionError{Reason: "quotation must be ASCII for the separator indexer"}
	}
	return nil
}
