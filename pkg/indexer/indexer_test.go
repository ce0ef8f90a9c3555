package indexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/tamsen/simdcsv/pkg/lexer"
	"github.com/tamsen/simdcsv/pkg/types"
)

func lexAll(t *testing.T, input string) []types.Token {
	t.Helper()
	lex, err := lexer.New(types.Options{})
	require.NoError(t, err)

	var tokens []types.Token
	for tok, err := range lex.Lex(input, false) {
		require.NoError(t, err)
		tokens = append(tokens, tok)
	}
	for tok, err := range lex.Flush() {
		require.NoError(t, err)
		tokens = append(tokens, tok)
	}
	return tokens
}

func indexAll(t *testing.T, backend ScanBackend, input string) []types.Token {
	t.Helper()
	ts, err := NewTokenStream(types.Options{}, backend)
	require.NoError(t, err)

	tokens, err := ts.Index([]byte(input), false)
	require.NoError(t, err)
	return tokens
}

const equivalenceFixture = "name,age\nAlice,20\nBob,25\n" +
	`"Smith, John","He said ""hello"""` + "\n" +
	"a,b\r\n1,2\r\n"

func TestIndexerMaterializationMatchesLexerForASCII(t *testing.T) {
	for _, backend := range []ScanBackend{newScalarBackend(), newSIMDBackend()} {
		if !backend.IsReady() {
			continue
		}
		t.Run(backend.Name(), func(t *testing.T) {
			want := lexAll(t, equivalenceFixture)
			got := indexAll(t, backend, equivalenceFixture)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("indexer/lexer token mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScalarAndSIMDBackendsAgree(t *testing.T) {
	simd := newSIMDBackend()
	if !simd.IsReady() {
		t.Skip("SSE4.2 not available in this environment")
	}
	scalar := newScalarBackend()

	inputs := []string{
		equivalenceFixture,
		`"a""b",c` + "\n",
		"",
		"a,b,c",
		"no-trailing-newline,here",
	}

	for _, in := range inputs {
		scalarRes := scalar.Scan([]byte(in), ',', '"', false)
		simdRes := simd.Scan([]byte(in), ',', '"', false)

		if scalarRes.SepCount != simdRes.SepCount {
			t.Fatalf("SepCount mismatch for %q: scalar=%d simd=%d", in, scalarRes.SepCount, simdRes.SepCount)
		}
		for i := 0; i < scalarRes.SepCount; i++ {
			if scalarRes.Separators[i] != simdRes.Separators[i] {
				t.Errorf("separator %d mismatch for %q: scalar=%x simd=%x", i, in, scalarRes.Separators[i], simdRes.Separators[i])
			}
		}
		if scalarRes.ProcessedBytes != simdRes.ProcessedBytes {
			t.Errorf("ProcessedBytes mismatch for %q: scalar=%d simd=%d", in, scalarRes.ProcessedBytes, simdRes.ProcessedBytes)
		}
		if scalarRes.EndInQuote != simdRes.EndInQuote {
			t.Errorf("EndInQuote mismatch for %q: scalar=%v simd=%v", in, scalarRes.EndInQuote, simdRes.EndInQuote)
		}
	}
}

func TestIndexerStreamingChunkInvariance(t *testing.T) {
	const input = "name,age\nAlice,20\nBob,25\nCarol,31\n"
	whole, err := NewTokenStream(types.Options{}, newScalarBackend())
	require.NoError(t, err)
	wantTokens, err := whole.Index([]byte(input), false)
	require.NoError(t, err)

	for split := 0; split <= len(input); split++ {
		ts, err := NewTokenStream(types.Options{}, newScalarBackend())
		require.NoError(t, err)

		var got []types.Token
		first, err := ts.Index([]byte(input[:split]), true)
		require.NoError(t, err)
		got = append(got, first...)

		second, err := ts.Index([]byte(input[split:]), true)
		require.NoError(t, err)
		got = append(got, second...)

		flushed, err := ts.Flush()
		require.NoError(t, err)
		got = append(got, flushed...)

		if diff := cmp.Diff(wantTokens, got); diff != "" {
			t.Errorf("split at %d: token mismatch (-want +got):\n%s", split, diff)
		}
	}
}

func TestIndexerBufferLimitExceeded(t *testing.T) {
	idx, err := New(types.Options{MaxBufferSize: 4}, newScalarBackend())
	require.NoError(t, err)

	_, err = idx.Index([]byte("abcdefgh"), true)
	require.Error(t, err)

	var parseErr *types.ParseError
	require.ErrorAs(t, err, &parseErr)
	if parseErr.Err != types.ErrBufferLimitExceeded {
		t.Errorf("underlying error = %v, want %v", parseErr.Err, types.ErrBufferLimitExceeded)
	}
}

func TestIndexerUnterminatedQuotedFieldAtFlush(t *testing.T) {
	ts, err := NewTokenStream(types.Options{}, newScalarBackend())
	require.NoError(t, err)

	_, err = ts.Index([]byte("a\n"), true)
	require.NoError(t, err)

	_, err = ts.Index([]byte(`"`), true)
	require.NoError(t, err)

	_, err = ts.Flush()
	require.Error(t, err)

	var parseErr *types.ParseError
	require.ErrorAs(t, err, &parseErr)
	if parseErr.Err != types.ErrUnexpectedEOF {
		t.Errorf("underlying error = %v, want %v", parseErr.Err, types.ErrUnexpectedEOF)
	}
}

func TestIndexerUnterminatedQuotedFieldNonStreaming(t *testing.T) {
	ts, err := NewTokenStream(types.Options{}, newScalarBackend())
	require.NoError(t, err)

	_, err = ts.Index([]byte("a\n\""), false)
	require.Error(t, err)

	var parseErr *types.ParseError
	require.ErrorAs(t, err, &parseErr)
	if parseErr.Err != types.ErrUnexpectedEOF {
		t.Errorf("underlying error = %v, want %v", parseErr.Err, types.ErrUnexpectedEOF)
	}
}

func TestSelectBackendPrefersReadyBackend(t *testing.T) {
	backend := SelectBackend()
	if !backend.IsReady() {
		t.Errorf("SelectBackend returned a backend that is not ready: %s", backend.Name())
	}
}
