package indexer

// scalarBackend folds left over bytes one at a time, tracking an in_quote
// bit that toggles on every quotation byte and emitting a separator for
// each delimiter or LF byte observed while outside a quoted span — exactly
// the "Bytewise state model" spec.md §4.3 specifies. Grounded on the
// teacher's csv.Reader fallback path (simdcsv.go's encodingCsv/fallback),
// which is itself a plain byte-oriented scan used whenever the
// accelerated path isn't available or isn't safe.
type scalarBackend struct{}

func newScalarBackend() *scalarBackend { return &scalarBackend{} }

func (scalarBackend) Name() string      { return "scalar" }
func (scalarBackend) MaxChunkSize() int { return maxChunkSize }
func (scalarBackend) IsReady() bool     { return true }

func (scalarBackend) Scan(chunk []byte, delimiter, quotation byte, prevInQuote bool) ScanResult {
	quoted := prevInQuote
	seps := make([]uint32, 0, len(chunk)/4+1)
	lastLF := -1

	for i := 0; i < len(chunk); i++ {
		b := chunk[i]
		if b == quotation {
			quoted = !quoted
			continue
		}
		if quoted {
			continue
		}
		switch b {
		case delimiter:
			seps = append(seps, packSeparator(i, SepDelimiter, false))
		case '\n':
			seps = append(seps, packSeparator(i, SepLF, false))
			lastLF = i
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
