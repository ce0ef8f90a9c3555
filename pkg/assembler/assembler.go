// Package assembler implements the Record Assembler: a stateful aggregator
// that groups a token sequence into records keyed by a header row
// (discovered or supplied), emitting one record per row.
package assembler

import (
	"iter"

	"github.com/tamsen/simdcsv/pkg/types"
)

// Assembler is a single-owner, stateful aggregator. It is path-agnostic: it
// accepts tokens from the Lexer or from the Separator Indexer's token
// materializer indifferently.
type Assembler struct {
	opts types.Options

	headerFixed bool
	header      []string

	current   []string
	rowNumber int

	closed   bool
	closeErr error
}

// New validates opts and returns a ready-to-use Assembler. If opts.Header
// is non-nil it is taken as-is and the first record encountered in the
// token stream is treated as data; otherwise the first row is captured as
// the header and produces no record.
func New(opts types.Options) (*Assembler, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	a := &Assembler{opts: opts, rowNumber: 1}
	if opts.Header != nil {
		a.headerFixed = true
		a.header = append([]string(nil), opts.Header...)
	}
	return a, nil
}

// Assemble consumes tokens and returns a lazy sequence of the records they
// produce. Tokens may be supplied as a single sequence or via repeated
// calls; state persists across calls.
func (a *Assembler) Assemble(tokens iter.Seq2[types.Token, error]) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		a.run(tokens, yield)
	}
}

// AssembleSlice is a convenience wrapper for callers holding tokens as a
// plain slice (e.g. a transform adapter's per-chunk batch) rather than an
// iterator.
func (a *Assembler) AssembleSlice(tokens []types.Token) iter.Seq2[types.Record, error] {
	return a.Assemble(func(yield func(types.Token, error) bool) {
		for _, t := range tokens {
			if !yield(t, nil) {
				return
			}
		}
	})
}

// Flush emits the current partial row if it has any accumulated fields,
// otherwise nothing.
func (a *Assembler) Flush() iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		if a.closed {
			return
		}
		a.maybeEmitCurrent(yield)
	}
}

func (a *Assembler) run(tokens iter.Seq2[types.Token, error], yield func(types.Record, error) bool) {
	if a.closed {
		yield(types.Record{}, a.closeErr)
		return
	}

	for tok, err := range tokens {
		if err != nil {
			a.fail(yield, err)
			return
		}

		switch tok.Kind {
		case types.Field:
			a.current = append(a.current, tok.Value)
			if a.opts.MaxFieldCount > 0 && len(a.current) > a.opts.MaxFieldCount {
				a.fail(yield, &types.ParseError{
					Position: tok.Location.Start,
					Source:   a.opts.Source,
					Err:      types.ErrFieldCountExceeded,
				})
				return
			}
		case types.FieldDelimiter:
			// No-op: field boundaries are already reflected by successive
			// Field tokens.
		case types.RecordDelimiter:
			if !a.closeRow(yield) {
				return
			}
		}

		if a.opts.Signal != nil && a.opts.Signal.Aborted() {
			a.fail(yield, types.ErrFromSignal(a.opts.Signal))
			return
		}
	}
}

func (a *Assembler) fail(yield func(types.Record, error) bool, err error) {
	a.closed = true
	a.closeErr = err
	yield(types.Record{}, err)
}

// closeRow finalizes the current accumulated row: captures it as the
// header if none is fixed yet, otherwise emits it as a record zipped
// against the fixed header.
func (a *Assembler) closeRow(yield func(types.Record, error) bool) bool {
	row := a.current
	a.current = nil
	a.rowNumber++

	if !a.headerFixed {
		a.headerFixed = true
		a.header = row
		return true
	}

	return yield(a.buildRecord(row), nil)
}

// maybeEmitCurrent is closeRow's flush-time counterpart: it only acts if
// the partial row actually has content. If no header is fixed yet, that
// final unterminated row is captured as the header and no record is
// emitted.
func (a *Assembler) maybeEmitCurrent(yield func(types.Record, error) bool) {
	if len(a.current) == 0 {
		return
	}
	row := a.current
	a.current = nil

	if !a.headerFixed {
		a.headerFixed = true
		a.header = row
		return
	}

	yield(a.buildRecord(row), nil)
}

// buildRecord zips row against the fixed header: missing trailing slots
// become "", and fields beyond len(header) are dropped. Duplicate header
// names resolve last-wins (see SPEC_FULL.md §9).
func (a *Assembler) buildRecord(row []string) types.Record {
	h := a.header
	fields := make([]string, len(h))
	for i := range fields {
		if i < len(row) {
			fields[i] = row[i]
		}
	}
	return types.Record{Names: append([]string(nil), h...), Fields: fields}
}

// Header returns the currently fixed header, or nil if none has been
// captured yet.
func (a *Assembler) Header() []string {
	if !a.headerFixed {
		return nil
	}
	return append([]string(nil), a.header...)
}
