// Package indexer implements the Separator Indexer: an alternative
// front-end that scans raw UTF-8 bytes for delimiter/LF separators outside
// quoted spans via a pluggable ScanBackend, then materializes the packed
// result into the same Token shape the Lexer produces.
package indexer

import (
	"github.com/tamsen/simdcsv/pkg/types"
)

// SelectBackend returns the fastest ready backend: the word-parallel
// backend if the CPU supports it, otherwise the scalar backend — the same
// fallback shape as the teacher's SupportedCPU() gate between its
// accelerated Reader path and its encoding/csv fallback.
func SelectBackend() ScanBackend {
	simd := newSIMDBackend()
	if simd.IsReady() {
		return simd
	}
	return newScalarBackend()
}

// Indexer is the streaming wrapper around a ScanBackend. It is
// single-owner, like the Lexer and Assembler.
type Indexer struct {
	opts    types.Options
	backend ScanBackend

	leftover    []byte
	prevInQuote bool

	closed bool
}

// New validates opts (requiring ASCII Delimiter/Quotation, the Indexer's
// stricter constraint) and returns a ready-to-use Indexer over backend. If
// backend is nil, SelectBackend() chooses one.
func New(opts types.Options, backend ScanBackend) (*Indexer, error) {
	opts = opts.WithDefaults()
	if err := opts.ValidateASCII(); err != nil {
		return nil, err
	}
	if backend == nil {
		backend = SelectBackend()
	}
	return &Indexer{opts: opts, backend: backend}, nil
}

// Backend reports which ScanBackend is in use.
func (idx *Indexer) Backend() ScanBackend { return idx.backend }

// IndexResult is what Index/Flush return: the bytes actually covered by
// this call's separators (so the caller can materialize tokens from them)
// plus the scan outcome.
type IndexResult struct {
	// Bytes is the byte span the returned separators index into: for a
	// streaming call, leftover-from-last-time concatenated with chunk, up
	// to ProcessedBytes; for a flush, all of leftover.
	Bytes          []byte
	Separators     []uint32
	SepCount       int
	ProcessedBytes int
}

// Index scans chunk. With streaming=true, separators are reported only up
// to the last observed LF; unconsumed trailing bytes are held as leftover
// for the next call, and quote parity is reset to false entering the next
// chunk, since streaming mode only emits separators up to the last LF,
// where any balanced quoting must have closed (spec.md §4.3). With
// streaming=false, the backend runs to completion over leftover+chunk and
// EndInQuote carries into prevInQuote for a subsequent Flush — unless the
// scan ends inside a quoted field, which is fatal (spec.md §7, scenario
// S6): this call then returns *types.ParseError wrapping
// types.ErrUnexpectedEOF instead, mirroring the Lexer's finalFlush
// modeQuotedField case.
func (idx *Indexer) Index(chunk []byte, streaming bool) (IndexResult, error) {
	if idx.closed {
		return IndexResult{}, types.ErrFromSignal(idx.opts.Signal)
	}
	if idx.opts.Signal != nil && idx.opts.Signal.Aborted() {
		idx.closed = true
		return IndexResult{}, types.ErrFromSignal(idx.opts.Signal)
	}

	combined := append(idx.leftover, chunk...)
	if idx.opts.MaxBufferSize > 0 && len(combined) > idx.opts.MaxBufferSize {
		idx.closed = true
		return IndexResult{}, &types.ParseError{Source: idx.opts.Source, Err: types.ErrBufferLimitExceeded}
	}

	res := idx.backend.Scan(combined, byte(idx.opts.Delimiter), byte(idx.opts.Quotation), idx.prevInQuote)

	if streaming {
		processed := res.ProcessedBytes
		kept := make([]byte, len(combined)-processed)
		copy(kept, combined[processed:])
		idx.leftover = kept
		idx.prevInQuote = false

		filtered := res.Separators[:0:0]
		for i := 0; i < res.SepCount; i++ {
			off, _, _ := unpackSeparator(res.Separators[i])
			if off < processed {
				filtered = append(filtered, res.Separators[i])
			}
		}

		return IndexResult{
			Bytes:          combined[:processed],
			Separators:     filtered,
			SepCount:       len(filtered),
			ProcessedBytes: processed,
		}, nil
	}

	if res.EndInQuote {
		idx.closed = true
		return IndexResult{}, &types.ParseError{Source: idx.opts.Source, Err: types.ErrUnexpectedEOF}
	}

	idx.leftover = nil
	idx.prevInQuote = res.EndInQuote

	return IndexResult{
		Bytes:          combined,
		Separators:     res.Separators[:res.SepCount],
		SepCount:       res.SepCount,
		ProcessedBytes: len(combined),
	}, nil
}

// Flush treats the held leftover as final bytes: it scans with
// prevInQuote carried from the last non-streaming call (0/false if none),
// and always reports ProcessedBytes = len(leftover), regardless of a
// trailing LF. A quote left open at this point (res.EndInQuote) means the
// stream ended inside a quoted field — fatal, mirroring the Lexer's
// finalFlush modeQuotedField case (spec.md §7, scenario S6).
func (idx *Indexer) Flush() (IndexResult, error) {
	if idx.closed {
		return IndexResult{}, types.ErrFromSignal(idx.opts.Signal)
	}

	leftover := idx.leftover
	res := idx.backend.Scan(leftover, byte(idx.opts.Delimiter), byte(idx.opts.Quotation), idx.prevInQuote)

	if res.EndInQuote {
		idx.closed = true
		return IndexResult{}, &types.ParseError{Source: idx.opts.Source, Err: types.ErrUnexpectedEOF}
	}

	idx.leftover = nil
	idx.prevInQuote = res.EndInQuote

	return IndexResult{
		Bytes:          leftover,
		Separators:     res.Separators[:res.SepCount],
		SepCount:       res.SepCount,
		ProcessedBytes: len(leftover),
	}, nil
}
