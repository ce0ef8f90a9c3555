package indexer

import (
	"strings"

	"github.com/tamsen/simdcsv/pkg/types"
)

// materialize walks res's packed separator list, slicing res.Bytes between
// consecutive separators into the same three token kinds the Lexer
// produces, starting from cursor (line, column, offset, rowNumber).
// final indicates this call covers the terminal bytes of the stream (a
// non-streaming Index call or a Flush): any bytes left over after the
// last separator, or the empty field after a trailing delimiter, are then
// emitted as one final Field token, mirroring the Lexer's flush behavior.
//
// Position offsets and columns are counted in bytes for the indexer path:
// the equivalence property in spec.md §8 only needs to hold for ASCII-only
// field content, where byte and rune counts coincide.
func materialize(res IndexResult, delimiter, quotation byte, cursor types.Position, row int, final bool) ([]types.Token, types.Position, int) {
	var tokens []types.Token
	pos := cursor
	fieldStart := 0
	fieldStartPos := pos
	afterDelimiter := false

	for i := 0; i < res.SepCount; i++ {
		offset, kind, _ := unpackSeparator(res.Separators[i])
		local := offset // separator offsets are already local to res.Bytes

		raw := res.Bytes[fieldStart:local]
		trimmedLen := len(raw)
		recValue := "\n"
		if kind == SepLF && len(raw) > 0 && raw[len(raw)-1] == '\r' {
			raw = raw[:len(raw)-1]
			trimmedLen = len(raw)
			recValue = "\r\n"
		}

		fieldEndPos := advancePos(pos, trimmedLen)
		tokens = append(tokens, types.Token{
			Kind:  types.Field,
			Value: unescapeField(raw, quotation),
			Location: types.Location{
				Start:     fieldStartPos,
				End:       fieldEndPos,
				RowNumber: row,
			},
		})
		pos = fieldEndPos

		switch kind {
		case SepDelimiter:
			delimEnd := advancePos(pos, 1)
			tokens = append(tokens, types.Token{
				Kind:  types.FieldDelimiter,
				Value: string(delimiter),
				Location: types.Location{
					Start:     pos,
					End:       delimEnd,
					RowNumber: row,
				},
			})
			pos = delimEnd
			fieldStartPos = pos
			fieldStart = local + 1
			afterDelimiter = true

		case SepLF:
			consumed := (local + 1) - fieldStart - trimmedLen
			// End mirrors the Lexer's emitRecordDelimiterAt: only Offset
			// advances by the delimiter's length, Line/Column stay at Start
			// (the cursor itself moves to the next line separately).
			recEnd := pos
			recEnd.Offset += consumed
			tokens = append(tokens, types.Token{
				Kind:  types.RecordDelimiter,
				Value: recValue,
				Location: types.Location{
					Start:     pos,
					End:       recEnd,
					RowNumber: row,
				},
			})
			row++
			pos = types.Position{Line: pos.Line + 1, Column: 1, Offset: recEnd.Offset}
			fieldStartPos = pos
			fieldStart = local + 1
			afterDelimiter = false
		}
	}

	if final && (fieldStart < len(res.Bytes) || afterDelimiter) {
		raw := res.Bytes[fieldStart:]
		endPos := advancePos(pos, len(raw))
		tokens = append(tokens, types.Token{
			Kind:  types.Field,
			Value: unescapeField(raw, quotation),
			Location: types.Location{
				Start:     fieldStartPos,
				End:       endPos,
				RowNumber: row,
			},
		})
		pos = endPos
	}

	return tokens, pos, row
}

// advancePos advances a byte-granularity cursor by n bytes without
// crossing a line boundary (record delimiters reposition the cursor
// themselves).
func advancePos(p types.Position, n int) types.Position {
	p.Offset += n
	p.Column += n
	return p
}

// unescapeField strips surrounding quotes and collapses doubled quotation
// bytes, unconditionally (ScanResult.UnescapeFlags, when absent, means
// "check every field" per spec.md §4.3).
func unescapeField(raw []byte, quotation byte) string {
	if len(raw) >= 2 && raw[0] == quotation && raw[len(raw)-1] == quotation {
		inner := raw[1 : len(raw)-1]
		doubled := string([]byte{quotation, quotation})
		single := string([]byte{quotation})
		return strings.ReplaceAll(string(inner), doubled, single)
	}
	return string(raw)
}
