package indexer

import (
	"math/bits"

	"github.com/klauspost/cpuid/v2"
)

// simdBackend processes the chunk 64 bytes at a time, building a
// quote/delimiter/LF bitmask per word and resolving quote parity with a
// carry-propagated span fill instead of a per-byte branch — the
// bit-parallel technique spec.md's Bytewise state model describes,
// generalized from the teacher's masksStream/quoted carry value threaded
// across 64-bit words in stage1PreprocessBufferEx. Readiness is gated by
// github.com/klauspost/cpuid/v2 feature detection, mirroring the teacher's
// own SupportedCPU() gate between its accelerated path and its
// encoding/csv fallback.
type simdBackend struct{}

func newSIMDBackend() *simdBackend { return &simdBackend{} }

func (simdBackend) Name() string      { return "simd" }
func (simdBackend) MaxChunkSize() int { return maxChunkSize }

// IsReady reports whether the running CPU has the instruction support the
// accelerated path assumes. SSE4.2 is the same baseline feature MinIO's
// own SIMD string routines gate on.
func (simdBackend) IsReady() bool {
	return cpuid.CPU.Supports(cpuid.SSE42)
}

func (simdBackend) Scan(chunk []byte, delimiter, quotation byte, prevInQuote bool) ScanResult {
	quoted := prevInQuote
	seps := make([]uint32, 0, len(chunk)/4+1)
	lastLF := -1

	n := len(chunk)
	for base := 0; base < n; base += 64 {
		end := base + 64
		if end > n {
			end = n
		}
		word := chunk[base:end]

		var quoteBits, delimBits, lfBits uint64
		for j, b := range word {
			switch b {
			case quotation:
				quoteBits |= 1 << uint(j)
			case delimiter:
				delimBits |= 1 << uint(j)
			case '\n':
				lfBits |= 1 << uint(j)
			}
		}

		insideMask, carryOut := quoteParitySpan(quoteBits, quoted)
		quoted = carryOut

		sepBits := (delimBits | lfBits) &^ insideMask
		for sepBits != 0 {
			tz := bits.TrailingZeros64(sepBits)
			offset := base + tz
			kind := SepDelimiter
			if lfBits&(1<<uint(tz)) != 0 {
				kind = SepLF
				if offset > lastLF {
					lastLF = offset
				}
			}
			seps = append(seps, packSeparator(offset, kind, false))
			sepBits &^= 1 << uint(tz)
		}
	}

	processed := 0
	if lastLF >= 0 {
		processed = lastLF + 1
	}

	return ScanResult{
		Separators:     seps,
		SepCount:       len(seps),
		ProcessedBytes: processed,
		EndInQuote:     quoted,
	}
}

// quoteParitySpan fills insideMask with 1-bits for every position whose
// quote parity (carried in from carryIn, toggled at each set bit in
// quoteBits) is odd — i.e. "inside a quoted span" — and returns the
// parity carried out past bit 63. Grounded on the teacher's
// bits.TrailingZeros64 walk over masksStream words in stage1Streaming,
// generalized from "find the first separator" to "fill every inside-quote
// span".
func quoteParitySpan(quoteBits uint64, carryIn bool) (insideMask uint64, carryOut bool) {
	carry := carryIn
	pos := 0
	remaining := quoteBits
	for remaining != 0 {
		tz := bits.TrailingZeros64(remaining)
		if carry {
			insideMask |= spanMask(pos, tz)
		}
		carry = !carry
		pos = tz + 1
		remaining &^= 1 << uint(tz)
	}
	if carry {
		insideMask |= spanMask(pos, 64)
	}
	return insideMask, carry
}

// spanMask returns a mask with bits [lo, hi) set.
func spanMask(lo, hi int) uint64 {
	if lo >= hi || lo >= 64 {
		return 0
	}
	if hi >= 64 {
		return ^uint64(0) << uint(lo)
	}
	return (uint64(1)<<uint(hi) - 1) &^ (uint64(1)<<uint(lo) - 1)
}
