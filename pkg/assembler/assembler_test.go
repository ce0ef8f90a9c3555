package assembler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tamsen/simdcsv/pkg/lexer"
	"github.com/tamsen/simdcsv/pkg/types"
)

func lexAll(t *testing.T, opts types.Options, input string) []types.Token {
	t.Helper()
	lex, err := lexer.New(opts)
	require.NoError(t, err)

	var tokens []types.Token
	for tok, err := range lex.Lex(input, false) {
		require.NoError(t, err)
		tokens = append(tokens, tok)
	}
	return tokens
}

func collectRecords(t *testing.T, seq func(func(types.Record, error) bool)) ([]types.Record, error) {
	t.Helper()
	var records []types.Record
	var scanErr error
	for rec, err := range seq {
		if err != nil {
			scanErr = err
			break
		}
		records = append(records, rec)
	}
	return records, scanErr
}

func TestAssemblerAutoHeader(t *testing.T) {
	tokens := lexAll(t, types.Options{}, "name,age\nAlice,20\nBob,25\n")

	asm, err := New(types.Options{})
	require.NoError(t, err)

	records, err := collectRecords(t, asm.AssembleSlice(tokens))
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, []string{"name", "age"}, records[0].Names)
	require.Equal(t, []string{"Alice", "20"}, records[0].Fields)
	require.Equal(t, map[string]string{"name": "Bob", "age": "25"}, records[1].Map())
}

func TestAssemblerFixedHeaderTreatsFirstRowAsData(t *testing.T) {
	tokens := lexAll(t, types.Options{}, "Alice,20\n")

	asm, err := New(types.Options{Header: []string{"name", "age"}})
	require.NoError(t, err)

	records, err := collectRecords(t, asm.AssembleSlice(tokens))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, []string{"Alice", "20"}, records[0].Fields)
}

func TestAssemblerPadsShortRows(t *testing.T) {
	tokens := lexAll(t, types.Options{}, "a,b,c\n1,2\n")

	asm, err := New(types.Options{})
	require.NoError(t, err)

	records, err := collectRecords(t, asm.AssembleSlice(tokens))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, []string{"1", "2", ""}, records[0].Fields)
}

func TestAssemblerTruncatesLongRows(t *testing.T) {
	tokens := lexAll(t, types.Options{}, "a,b\n1,2,3,4\n")

	asm, err := New(types.Options{})
	require.NoError(t, err)

	records, err := collectRecords(t, asm.AssembleSlice(tokens))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, []string{"1", "2"}, records[0].Fields)
}

func TestAssemblerDuplicateHeaderLastWins(t *testing.T) {
	tokens := lexAll(t, types.Options{}, "a,a\n1,2\n")

	asm, err := New(types.Options{})
	require.NoError(t, err)

	records, err := collectRecords(t, asm.AssembleSlice(tokens))
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.Equal(t, []string{"a", "a"}, records[0].Names)
	require.Equal(t, map[string]string{"a": "2"}, records[0].Map())
}

func TestAssemblerFlushEmitsTrailingPartialRow(t *testing.T) {
	lex, err := lexer.New(types.Options{})
	require.NoError(t, err)

	var tokens []types.Token
	for tok, err := range lex.Lex("a,b\n1,2", true) {
		require.NoError(t, err)
		tokens = append(tokens, tok)
	}
	for tok, err := range lex.Flush() {
		require.NoError(t, err)
		tokens = append(tokens, tok)
	}

	asm, err := New(types.Options{})
	require.NoError(t, err)

	records, err := collectRecords(t, asm.AssembleSlice(tokens))
	require.NoError(t, err)
	flushed, err := collectRecords(t, asm.Flush())
	require.NoError(t, err)
	records = append(records, flushed...)
	require.Len(t, records, 1)
	require.Equal(t, []string{"1", "2"}, records[0].Fields)
}

func TestAssemblerMaxFieldCountExceeded(t *testing.T) {
	tokens := lexAll(t, types.Options{}, "a,b,c\n")

	asm, err := New(types.Options{MaxFieldCount: 2})
	require.NoError(t, err)

	_, err = collectRecords(t, asm.AssembleSlice(tokens))
	require.Error(t, err)

	var parseErr *types.ParseError
	require.ErrorAs(t, err, &parseErr)
	if parseErr.Err != types.ErrFieldCountExceeded {
		t.Errorf("underlying error = %v, want %v", parseErr.Err, types.ErrFieldCountExceeded)
	}
}

func TestAssemblerClosedAfterErrorReturnsSameError(t *testing.T) {
	tokens := lexAll(t, types.Options{}, "a,b,c\n")

	asm, err := New(types.Options{MaxFieldCount: 2})
	require.NoError(t, err)

	_, firstErr := collectRecords(t, asm.AssembleSlice(tokens))
	require.Error(t, firstErr)

	_, secondErr := collectRecords(t, asm.AssembleSlice(nil))
	require.Equal(t, firstErr, secondErr)
}
