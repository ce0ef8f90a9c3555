package indexer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/tamsen/simdcsv/pkg/types"
)

func TestScanParallelMatchesSequentialIndexer(t *testing.T) {
	// Every row is the same length, and chunkSize below is a multiple of
	// it, so every parallel split lands cleanly between rows regardless
	// of how the ambiguity heuristic reads the window — the scenario this
	// test is meant to exercise (splitting, then stitching, many chunks).
	const row = "Alice,30,\"Springfield, USA\"\n"
	var b strings.Builder
	for i := 0; i < 500; i++ {
		b.WriteString(row)
	}
	input := b.String()

	seq, err := NewTokenStream(types.Options{}, newScalarBackend())
	require.NoError(t, err)
	want, err := seq.Index([]byte(input), false)
	require.NoError(t, err)

	got, err := ScanParallel(types.Options{}, newScalarBackend(), []byte(input), 10*len(row))
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ScanParallel token mismatch (-want +got):\n%s", diff)
	}
}

func TestScanParallelSingleChunkFallsBackToSequentialScan(t *testing.T) {
	const input = "a,b\n1,2\n"
	got, err := ScanParallel(types.Options{}, newScalarBackend(), []byte(input), 1<<20)
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

func TestScanParallelUnterminatedQuotedFieldInFinalChunk(t *testing.T) {
	const row = "Alice,30,\"Springfield, USA\"\n"
	var b strings.Builder
	for i := 0; i < 500; i++ {
		b.WriteString(row)
	}
	b.WriteString(`a,"unterminated`)
	input := b.String()

	_, err := ScanParallel(types.Options{}, newScalarBackend(), []byte(input), 10*len(row))
	require.Error(t, err)

	var parseErr *types.ParseError
	require.ErrorAs(t, err, &parseErr)
	if parseErr.Err != types.ErrUnexpectedEOF {
		t.Errorf("underlying error = %v, want %v", parseErr.Err, types.ErrUnexpectedEOF)
	}
}

func TestScanParallelUnterminatedQuotedFieldSingleChunk(t *testing.T) {
	const input = "a\n\""
	_, err := ScanParallel(types.Options{}, newScalarBackend(), []byte(input), 1<<20)
	require.Error(t, err)

	var parseErr *types.ParseError
	require.ErrorAs(t, err, &parseErr)
	if parseErr.Err != types.ErrUnexpectedEOF {
		t.Errorf("underlying error = %v, want %v", parseErr.Err, types.ErrUnexpectedEOF)
	}
}

func TestBoundaryAmbiguousDetectsQuoteStraddlingChunk(t *testing.T) {
	// A lone quote with nothing before or after it in the window gives no
	// reliable signal either way.
	require.True(t, boundaryAmbiguous([]byte(`"`), ',', '"'))

	// A quote immediately followed by ordinary field content is a clear
	// field-opening signal (a closing quote is always followed by the
	// quote/delimiter/newline itself), so the window is unambiguous.
	require.False(t, boundaryAmbiguous([]byte(`"a",1,2`+"\n"), ',', '"'))
}
