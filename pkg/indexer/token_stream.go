package indexer

import (
	"github.com/tamsen/simdcsv/pkg/types"
)

// TokenStream wraps an Indexer with the location/row cursor materialize
// needs across calls: the Indexer itself only tracks scan state
// (leftover bytes, quote parity), so the token-location bookkeeping lives
// here, one layer up, the same separation spec.md §4.3 draws between
// "scan" and "materialize".
type TokenStream struct {
	idx    *Indexer
	cursor types.Position
	row    int
}

// NewTokenStream builds a TokenStream starting at row 1, column 1, offset 0.
func NewTokenStream(opts types.Options, backend ScanBackend) (*TokenStream, error) {
	idx, err := New(opts, backend)
	if err != nil {
		return nil, err
	}
	return &TokenStream{
		idx:    idx,
		cursor: types.Position{Line: 1, Column: 1, Offset: 0},
		row:    1,
	}, nil
}

// Backend exposes the underlying ScanBackend for diagnostics.
func (ts *TokenStream) Backend() ScanBackend { return ts.idx.Backend() }

// Index scans chunk and materializes the resulting separators into tokens,
// advancing the stream's location cursor. streaming=true defers any
// trailing partial field to a later call, per Index's own contract.
func (ts *TokenStream) Index(chunk []byte, streaming bool) ([]types.Token, error) {
	res, err := ts.idx.Index(chunk, streaming)
	if err != nil {
		return nil, err
	}
	tokens, next, nextRow := materialize(res, byte(ts.idx.opts.Delimiter), byte(ts.idx.opts.Quotation), ts.cursor, ts.row, !streaming)
	ts.cursor, ts.row = next, nextRow
	return tokens, nil
}

// Flush materializes any held-back bytes as the final tokens of the stream.
func (ts *TokenStream) Flush() ([]types.Token, error) {
	res, err := ts.idx.Flush()
	if err != nil {
		return nil, err
	}
	tokens, next, nextRow := materialize(res, byte(ts.idx.opts.Delimiter), byte(ts.idx.opts.Quotation), ts.cursor, ts.row, true)
	ts.cursor, ts.row = next, nextRow
	return tokens, nil
}
