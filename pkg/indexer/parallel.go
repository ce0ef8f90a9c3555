package indexer

import (
	"fmt"
	"runtime"

	"github.com/tamsen/simdcsv/pkg/types"
)

// defaultParallelChunkSize is the split granularity ScanParallel uses when
// the caller doesn't pass one, matching the teacher's own chunking
// default order of magnitude.
const defaultParallelChunkSize = 4 << 20

// boundaryWindow is how much of a chunk's start ScanParallel inspects to
// decide whether assuming "this chunk begins outside a quoted span" is
// safe — the teacher's PREFIX_SIZE, carried over unchanged.
const boundaryWindow = 64 * 1024

// ScanParallel splits blob into chunkSize-byte chunks
// (defaultParallelChunkSize when chunkSize <= 0) and scans them
// concurrently on at most runtime.NumCPU() worker goroutines, each chunk
// assumed to start outside a quoted span. That assumption is checked
// heuristically: detectQuoteOutsidePattern/detectOutsideQuotePattern
// inspect each chunk's leading boundaryWindow bytes for a quote adjacent
// to something other than another quote, the delimiter, or a line feed.
// Finding one marks the window as unambiguous; it does not prove that the
// split byte itself lies outside a quoted span (see DESIGN.md, "Known
// limitation"). When a chunk's boundary is ambiguous, or a non-final chunk ends inside a
// quoted span (breaking the next chunk's same assumption), ScanParallel
// returns an error rather than guess; the caller should retry the whole
// blob with a single Indexer call in that case. If the *final* chunk ends
// inside a quoted span, that isn't a boundary hazard — it means blob itself
// ends with an unterminated quoted field, the fatal case spec.md §7's
// scenario S6 describes, and ScanParallel reports it the same way
// Indexer.Flush does: a *types.ParseError wrapping types.ErrUnexpectedEOF.
//
// Adapted from the teacher's ChunkBlob/deriveChunkResult/chunkWorker
// worker pool (chunking.go), which partitioned a blob across
// runtime.NumCPU() goroutines and classified each chunk's boundary as
// Ambiguous or Unambiguous without delimiter/quote configurability; this
// version resolves unambiguous chunks into the same Token stream the
// sequential Indexer produces instead of only reporting widow/orphan byte
// counts.
func ScanParallel(opts types.Options, backend ScanBackend, blob []byte, chunkSize int) ([]types.Token, error) {
	opts = opts.WithDefaults()
	if err := opts.ValidateASCII(); err != nil {
		return nil, err
	}
	if backend == nil {
		backend = SelectBackend()
	}
	delimiter := byte(opts.Delimiter)
	quotation := byte(opts.Quotation)

	if chunkSize <= 0 {
		chunkSize = defaultParallelChunkSize
	}
	n := (len(blob) + chunkSize - 1) / chunkSize
	if n <= 1 {
		res := backend.Scan(blob, delimiter, quotation, false)
		if res.EndInQuote {
			return nil, &types.ParseError{Source: opts.Source, Err: types.ErrUnexpectedEOF}
		}
		tokens, _, _ := materialize(IndexResult{
			Bytes:          blob,
			Separators:     res.Separators[:res.SepCount],
			SepCount:       res.SepCount,
			ProcessedBytes: len(blob),
		}, delimiter, quotation, types.Position{Line: 1, Column: 1, Offset: 0}, 1, true)
		return tokens, nil
	}

	type chunkJob struct {
		index int
		start int
		data  []byte
	}
	type chunkOut struct {
		index     int
		start     int
		res       ScanResult
		ambiguous bool
	}

	jobs := make(chan chunkJob)
	outs := make(chan chunkOut)

	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func() {
			for job := range jobs {
				ambiguous := job.index > 0 && boundaryAmbiguous(job.data, delimiter, quotation)
				res := backend.Scan(job.data, delimiter, quotation, false)
				outs <- chunkOut{job.index, job.start, res, ambiguous}
			}
			done <- struct{}{}
		}()
	}
	go func() {
		start := 0
		for i := 0; i < n; i++ {
			end := start + chunkSize
			if end > len(blob) {
				end = len(blob)
			}
			jobs <- chunkJob{i, start, blob[start:end]}
			start = end
		}
		close(jobs)
	}()
	go func() {
		for w := 0; w < workers; w++ {
			<-done
		}
		close(outs)
	}()

	results := make([]chunkOut, n)
	for o := range outs {
		results[o.index] = o
	}

	var allSeps []uint32
	for i, r := range results {
		if r.ambiguous {
			return nil, fmt.Errorf("indexer: chunk %d boundary is ambiguous under parallel scan; retry with a single Indexer", i)
		}
		if r.res.EndInQuote {
			if i == n-1 {
				// The whole blob ends inside a quoted span: not a chunk-boundary
				// hazard but an actually unterminated quoted field, the same
				// fatal S6 case Indexer.Flush raises for the sequential path.
				return nil, &types.ParseError{Source: opts.Source, Err: types.ErrUnexpectedEOF}
			}
			return nil, fmt.Errorf("indexer: chunk %d ends inside a quoted span; retry with a single Indexer", i)
		}
		for j := 0; j < r.res.SepCount; j++ {
			offset, kind, hint := unpackSeparator(r.res.Separators[j])
			allSeps = append(allSeps, packSeparator(offset+r.start, kind, hint))
		}
	}

	tokens, _, _ := materialize(IndexResult{
		Bytes:          blob,
		Separators:     allSeps,
		SepCount:       len(allSeps),
		ProcessedBytes: len(blob),
	}, delimiter, quotation, types.Position{Line: 1, Column: 1, Offset: 0}, 1, true)

	return tokens, nil
}

// boundaryAmbiguous reports whether chunk's leading boundaryWindow bytes
// give no reliable signal about whether the chunk starts outside a quoted
// span.
func boundaryAmbiguous(chunk []byte, delimiter, quotation byte) bool {
	window := boundaryWindow
	if len(chunk) < window {
		window = len(chunk)
	}
	prefix := chunk[:window]
	if !containsByte(prefix, quotation) {
		return false
	}
	hasQuoteThenOther := detectQuoteOutsidePattern(prefix, delimiter, quotation)
	hasOtherThenQuote := detectOutsideQuotePattern(prefix, delimiter, quotation)
	return !hasQuoteThenOther && !hasOtherThenQuote
}

// detectQuoteOutsidePattern reports whether some quote byte in input is
// immediately followed by a byte that is neither another quote, the
// delimiter, nor a line feed — the shape of a quote opening a quoted
// field, seen from outside a quoted span.
func detectQuoteOutsidePattern(input []byte, delimiter, quotation byte) bool {
	for i := 0; i < len(input)-1; i++ {
		if input[i] != quotation {
			continue
		}
		next := input[i+1]
		if next != quotation && next != delimiter && next != '\n' {
			return true
		}
	}
	return false
}

// detectOutsideQuotePattern is detectQuoteOutsidePattern's mirror: a quote
// byte immediately preceded by a byte that is neither another quote, the
// delimiter, nor a line feed has the shape of a quote closing a quoted
// field.
func detectOutsideQuotePattern(input []byte, delimiter, quotation byte) bool {
	for i := 1; i < len(input); i++ {
		if input[i] != quotation {
			continue
		}
		prev := input[i-1]
		if prev != quotation && prev != delimiter && prev != '\n' {
			return true
		}
	}
	return false
}

func containsByte(b []byte, target byte) bool {
	for _, c := range b {
		if c == target {
			return true
		}
	}
	return false
}
