package transform

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tamsen/simdcsv/pkg/types"
)

func TestLexerTransformConsumeAndFlush(t *testing.T) {
	lt, err := NewLexerTransform(types.Options{}, 0)
	require.NoError(t, err)

	tokens, err := lt.Consume("name,age\nAl")
	require.NoError(t, err)
	require.NotEmpty(t, tokens)

	more, err := lt.Consume("ice,30\n")
	require.NoError(t, err)
	tokens = append(tokens, more...)

	flushed, err := lt.Flush()
	require.NoError(t, err)
	tokens = append(tokens, flushed...)

	var fields []string
	for _, tok := range tokens {
		if tok.Kind == types.Field {
			fields = append(fields, tok.Value)
		}
	}
	require.Equal(t, []string{"name", "age", "Alice", "30"}, fields)
}

func TestAssemblerTransformConsumeAndFlush(t *testing.T) {
	lt, err := NewLexerTransform(types.Options{}, 0)
	require.NoError(t, err)
	at, err := NewAssemblerTransform(types.Options{}, 0)
	require.NoError(t, err)

	tokens, err := lt.Consume("name,age\nAlice,30\nBob,40")
	require.NoError(t, err)
	records, err := at.Consume(tokens)
	require.NoError(t, err)
	require.Len(t, records, 1)

	flushedTokens, err := lt.Flush()
	require.NoError(t, err)
	flushedRecords, err := at.Consume(flushedTokens)
	require.NoError(t, err)
	records = append(records, flushedRecords...)

	final, err := at.Flush()
	require.NoError(t, err)
	records = append(records, final...)

	require.Len(t, records, 2)
	require.Equal(t, map[string]string{"name": "Bob", "age": "40"}, records[1].Map())
}

func TestLexerTransformRunRespectsBackpressureAndCancellation(t *testing.T) {
	lt, err := NewLexerTransform(types.Options{}, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	in := make(chan string, 1)
	in <- "a,b\n"

	var desired int32
	out, errc := lt.Run(ctx, in, func() int { return int(atomic.LoadInt32(&desired)) })

	select {
	case <-out:
		t.Fatal("expected no output while desired() <= 0")
	case <-time.After(30 * time.Millisecond):
	}

	atomic.StoreInt32(&desired, 1)
	close(in)

	select {
	case batch, ok := <-out:
		if ok {
			require.NotEmpty(t, batch)
		}
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for output")
	}

	select {
	case err := <-errc:
		require.NoError(t, err)
	default:
	}
}
