// Package lexer implements the character-granularity CSV state machine:
// a resumable scanner that classifies an incoming character stream into a
// token sequence (fields and delimiters) with precise source locations.
package lexer

import (
	"iter"

	"github.com/tamsen/simdcsv/pkg/types"
)

type mode int

const (
	modeStartOfField mode = iota
	modeUnquotedField
	modeQuotedField
	modeQuoteInQuoted
)

// Lexer is a long-lived, single-owner state machine configured once with
// {Delimiter, Quotation}. It is not safe for concurrent use.
type Lexer struct {
	opts types.Options

	mode mode

	// pos is the cursor: the position of the next character to be
	// consumed from whatever chunk arrives next.
	pos       types.Position
	rowNumber int

	// fieldStart is the Start position of the field currently being
	// accumulated.
	fieldStart types.Position
	pending    []rune // accumulated field body, doubled quotes already collapsed

	// pendingCR, when true, means a lone '\r' was seen in modeStartOfField,
	// modeUnquotedField, or modeQuoteInQuoted and its resolution (CRLF vs
	// bare CR) is deferred to the next character, which may arrive in a
	// later chunk.
	pendingCR      bool
	pendingCRStart types.Position

	closed bool // true after a fatal error; the Lexer must be discarded
}

// New validates opts and returns a ready-to-use Lexer.
func New(opts types.Options) (*Lexer, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Lexer{
		opts:       opts,
		mode:       modeStartOfField,
		pos:        types.Position{Line: 1, Column: 1, Offset: 0},
		rowNumber:  1,
		fieldStart: types.Position{Line: 1, Column: 1, Offset: 0},
	}, nil
}

// Lex feeds chunk to the state machine and returns a lazy sequence of the
// tokens it produces. streaming=true promises more input may follow;
// streaming=false flushes any terminal field/record once chunk is consumed.
func (l *Lexer) Lex(chunk string, streaming bool) iter.Seq2[types.Token, error] {
	return func(yield func(types.Token, error) bool) {
		l.run([]rune(chunk), streaming, yield)
	}
}

// Flush is equivalent to Lex("", false): it finalizes any buffered partial
// state without additional input.
func (l *Lexer) Flush() iter.Seq2[types.Token, error] {
	return l.Lex("", false)
}

func (l *Lexer) fail(yield func(types.Token, error) bool, pos types.Position, err error) {
	l.closed = true
	yield(types.Token{}, &types.ParseError{Position: pos, Source: l.opts.Source, Err: err})
}

func (l *Lexer) checkAbort(yield func(types.Token, error) bool) bool {
	if l.opts.Signal != nil && l.opts.Signal.Aborted() {
		l.closed = true
		yield(types.Token{}, types.ErrFromSignal(l.opts.Signal))
		return true
	}
	return false
}

// run is the core state machine. It consumes runes one at a time, yielding
// tokens as soon as they close, and honors streaming vs flush semantics for
// anything still open when runes run out.
func (l *Lexer) run(runes []rune, streaming bool, yield func(types.Token, error) bool) {
	if l.closed {
		yield(types.Token{}, &types.ParseError{Position: l.pos, Source: l.opts.Source, Err: types.ErrMalformedQuotedField})
		return
	}
	if l.checkAbort(yield) {
		return
	}

	i := 0
	n := len(runes)

	// Resolve a CR carried over from the previous call before looking at
	// mode-specific transitions.
	if l.pendingCR {
		l.pendingCR = false
		if n > 0 && runes[0] == '\n' {
			if !l.emitRecordDelimiterAt(yield, l.pendingCRStart, "\r\n") {
				return
			}
			i = 1
		} else {
			if !l.emitRecordDelimiterAt(yield, l.pendingCRStart, "\n") {
				return
			}
		}
	}

	for i < n {
		c := runes[i]
		start := l.pos

		switch l.mode {
		case modeStartOfField:
			switch {
			case c == l.opts.Quotation:
				l.fieldStart = start
				l.mode = modeQuotedField
				l.advance(c)
				i++
			case c == l.opts.Delimiter:
				if !l.emitFieldToken(yield, start, "") {
					return
				}
				if !l.emitDelimiter(yield) {
					return
				}
				i++
			case c == '\r':
				if !l.emitFieldToken(yield, start, "") {
					return
				}
				if !l.handleCR(runes, i+1, streaming, yield, &i) {
					return
				}
			case c == '\n':
				if !l.emitFieldToken(yield, start, "") {
					return
				}
				if !l.emitRecordDelimiter(yield, "\n") {
					return
				}
				i++
			default:
				l.fieldStart = start
				l.pending = append(l.pending, c)
				l.mode = modeUnquotedField
				l.advance(c)
				i++
			}

		case modeUnquotedField:
			switch {
			case c == l.opts.Delimiter:
				if !l.emitFieldToken(yield, l.fieldStart, l.currentFieldValue()) {
					return
				}
				if !l.emitDelimiter(yield) {
					return
				}
				i++
			case c == '\r':
				val := l.currentFieldValue()
				if !l.emitFieldToken(yield, l.fieldStart, val) {
					return
				}
				if !l.handleCR(runes, i+1, streaming, yield, &i) {
					return
				}
			case c == '\n':
				val := l.currentFieldValue()
				if !l.emitFieldToken(yield, l.fieldStart, val) {
					return
				}
				if !l.emitRecordDelimiter(yield, "\n") {
					return
				}
				i++
			default:
				// Includes the quotation character: lenient handling
				// appends it literally unless StrictQuoting is set.
				if c == l.opts.Quotation && l.opts.StrictQuoting {
					l.fail(yield, start, types.ErrMalformedQuotedField)
					return
				}
				if err := l.appendPending(start); err != nil {
					l.fail(yield, start, err)
					return
				}
				l.pending = append(l.pending, c)
				l.advance(c)
				i++
			}

		case modeQuotedField:
			if c == l.opts.Quotation {
				l.mode = modeQuoteInQuoted
				l.advance(c)
				i++
				continue
			}
			if err := l.appendPending(start); err != nil {
				l.fail(yield, start, err)
				return
			}
			l.pending = append(l.pending, c)
			l.advance(c)
			i++

		case modeQuoteInQuoted:
			switch {
			case c == l.opts.Quotation:
				if err := l.appendPending(start); err != nil {
					l.fail(yield, start, err)
					return
				}
				l.pending = append(l.pending, l.opts.Quotation)
				l.mode = modeQuotedField
				l.advance(c)
				i++
			case c == l.opts.Delimiter:
				val := l.currentFieldValue()
				if !l.emitFieldToken(yield, l.fieldStart, val) {
					return
				}
				if !l.emitDelimiter(yield) {
					return
				}
				i++
			case c == '\r':
				val := l.currentFieldValue()
				if !l.emitFieldToken(yield, l.fieldStart, val) {
					return
				}
				if !l.handleCR(runes, i+1, streaming, yield, &i) {
					return
				}
			case c == '\n':
				val := l.currentFieldValue()
				if !l.emitFieldToken(yield, l.fieldStart, val) {
					return
				}
				if !l.emitRecordDelimiter(yield, "\n") {
					return
				}
				i++
			default:
				l.fail(yield, start, types.ErrMalformedQuotedField)
				return
			}
		}
	}

	if !streaming {
		l.finalFlush(yield)
	}
}

// handleCR processes a '\r' seen outside a quoted field. If the next rune
// in the current chunk is '\n' it is consumed as a single CRLF record
// delimiter; if the chunk simply ends here and streaming is true, the CR
// is deferred to the next call; if the chunk ends and streaming is false,
// it resolves immediately as a lone-CR record delimiter with value "\n"
// (see SPEC_FULL.md §9, Open Question 2).
func (l *Lexer) handleCR(runes []rune, next int, streaming bool, yield func(types.Token, error) bool, i *int) bool {
	crStart := l.pos
	if next < len(runes) {
		if runes[next] == '\n' {
			if !l.emitRecordDelimiterAt(yield, crStart, "\r\n") {
				return false
			}
			*i = next + 1
			return true
		}
		if !l.emitRecordDelimiterAt(yield, crStart, "\n") {
			return false
		}
		*i = next
		return true
	}
	if streaming {
		l.pendingCR = true
		l.pendingCRStart = crStart
		l.advance('\r')
		*i = next
		return true
	}
	if !l.emitRecordDelimiterAt(yield, crStart, "\n") {
		return false
	}
	*i = next
	return true
}

func (l *Lexer) appendPending(at types.Position) error {
	if l.opts.MaxBufferSize > 0 && len(l.pending)+1 > l.opts.MaxBufferSize {
		return types.ErrBufferLimitExceeded
	}
	return nil
}

func (l *Lexer) currentFieldValue() string {
	s := string(l.pending)
	l.pending = l.pending[:0]
	return s
}

// advance moves the cursor past a single consumed, non-terminator
// character. Record delimiters manage line/column themselves.
func (l *Lexer) advance(c rune) {
	l.pos.Offset++
	l.pos.Column++
}

// emitFieldToken emits a Field token spanning [start, l.pos) in the current
// row, then returns the state machine to modeStartOfField.
func (l *Lexer) emitFieldToken(yield func(types.Token, error) bool, start types.Position, value string) bool {
	tok := types.Token{
		Kind:  types.Field,
		Value: value,
		Location: types.Location{
			Start:     start,
			End:       l.pos,
			RowNumber: l.rowNumber,
		},
	}
	l.mode = modeStartOfField
	return yield(tok, nil)
}

func (l *Lexer) emitDelimiter(yield func(types.Token, error) bool) bool {
	start := l.pos
	l.advance(l.opts.Delimiter)
	tok := types.Token{
		Kind:  types.FieldDelimiter,
		Value: string(l.opts.Delimiter),
		Location: types.Location{
			Start:     start,
			End:       l.pos,
			RowNumber: l.rowNumber,
		},
	}
	l.mode = modeStartOfField
	l.fieldStart = l.pos
	return yield(tok, nil)
}

func (l *Lexer) emitRecordDelimiter(yield func(types.Token, error) bool, value string) bool {
	return l.emitRecordDelimiterAt(yield, l.pos, value)
}

func (l *Lexer) emitRecordDelimiterAt(yield func(types.Token, error) bool, start types.Position, value string) bool {
	row := l.rowNumber
	end := start
	end.Offset += len([]rune(value))
	tok := types.Token{
		Kind:  types.RecordDelimiter,
		Value: value,
		Location: types.Location{
			Start:     start,
			End:       end,
			RowNumber: row,
		},
	}
	l.pos = types.Position{Line: start.Line + 1, Column: 1, Offset: end.Offset}
	l.rowNumber++
	l.mode = modeStartOfField
	l.fieldStart = l.pos
	return yield(tok, nil)
}

// finalFlush handles end-of-stream: an unterminated quoted field is fatal;
// a non-empty pending row (field content, or a field boundary already
// crossed via delimiter) is emitted as the final record's tokens; a
// dangling lone CR resolves per Open Question 2.
func (l *Lexer) finalFlush(yield func(types.Token, error) bool) {
	switch l.mode {
	case modeQuotedField:
		l.fail(yield, l.fieldStart, types.ErrUnexpectedEOF)
	case modeUnquotedField, modeQuoteInQuoted:
		l.emitFieldToken(yield, l.fieldStart, l.currentFieldValue())
	case modeStartOfField:
		// A column past 1 means a delimiter was just crossed on this line:
		// its trailing empty field is emitted. At the start of a line nothing
		// is buffered: no phantom trailing empty field/record.
		if l.pos.Column > 1 {
			l.emitFieldToken(yield, l.pos, "")
		}
	}
}
