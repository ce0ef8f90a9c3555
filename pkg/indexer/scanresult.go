package indexer

// SepKind tags whether a packed separator word represents a delimiter byte
// or a line-feed byte.
type SepKind uint32

const (
	SepDelimiter SepKind = 0
	SepLF        SepKind = 1
)

// Packed separator word layout (see SPEC_FULL.md / spec.md §4.3):
// bits 0-29 hold the offset (1 GiB cap per chunk), bit 30 is the
// "is-quoted" hint reserved for downstream materializers, bit 31 holds the
// kind (0 = Delimiter, 1 = LF).
const (
	sepOffsetMask = (1 << 30) - 1
	sepQuotedBit  = 1 << 30
	sepKindBit    = 1 << 31
)

// packSeparator encodes offset/kind/quotedHint into one packed word.
func packSeparator(offset int, kind SepKind, quotedHint bool) uint32 {
	w := uint32(offset) & sepOffsetMask
	if quotedHint {
		w |= sepQuotedBit
	}
	if kind == SepLF {
		w |= sepKindBit
	}
	return w
}

// unpackSeparator decodes a packed word back into its three fields.
func unpackSeparator(w uint32) (offset int, kind SepKind, quotedHint bool) {
	offset = int(w & sepOffsetMask)
	quotedHint = w&sepQuotedBit != 0
	if w&sepKindBit != 0 {
		kind = SepLF
	} else {
		kind = SepDelimiter
	}
	return
}

// ScanResult is what a ScanBackend returns for one chunk: a dense packed
// separator index plus the quote-parity state needed to continue scanning
// the next chunk.
type ScanResult struct {
	// Separators holds SepCount valid packed words (see above); capacity
	// may exceed SepCount so callers can reuse the backing array.
	Separators []uint32
	SepCount   int

	// ProcessedBytes is last-LF-offset + 1, or 0 if no LF was found in
	// this chunk.
	ProcessedBytes int

	// EndInQuote is the quote parity after the last processed byte. Even
	// parity (false) means outside quotes.
	EndInQuote bool

	// UnescapeFlags, if non-nil, holds one entry per separator indicating
	// whether the preceding field contains a doubled quote that needs
	// collapsing. A nil slice means "unconditionally check every field".
	UnescapeFlags []bool
}
