package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.WithDefaults()
	require.Equal(t, ',', opts.Delimiter)
	require.Equal(t, '"', opts.Quotation)
	require.Equal(t, defaultMaxBufferSize, opts.MaxBufferSize)
	require.Equal(t, defaultMaxFieldCount, opts.MaxFieldCount)
}

func TestOptionsValidateRejectsSameDelimiterAndQuotation(t *testing.T) {
	opts := Options{Delimiter: '"', Quotation: '"'}.WithDefaults()
	err := opts.Validate()
	require.Error(t, err)

	var invalid *InvalidOptionError
	require.ErrorAs(t, err, &invalid)
}

func TestOptionsValidateASCIIRejectsNonASCIIDelimiter(t *testing.T) {
	opts := Options{Delimiter: '☃'}.WithDefaults()
	require.NoError(t, opts.Validate())
	require.Error(t, opts.ValidateASCII())
}

func TestRecordGetAndMap(t *testing.T) {
	rec := Record{Names: []string{"a", "b"}, Fields: []string{"1", "2"}}

	v, ok := rec.Get("b")
	require.True(t, ok)
	require.Equal(t, "2", v)

	_, ok = rec.Get("missing")
	require.False(t, ok)

	require.Equal(t, map[string]string{"a": "1", "b": "2"}, rec.Map())
}

func TestAbortSignalFireIsMonotonicAndCallsCallbacks(t *testing.T) {
	sig := NewAbortSignal()
	require.False(t, sig.Aborted())

	var fired int
	sig.OnAbort(func() { fired++ })

	sig.Fire("timeout")
	sig.Fire("second-call-is-a-no-op")

	require.True(t, sig.Aborted())
	require.True(t, sig.IsTimeout())
	require.Equal(t, 1, fired)

	select {
	case <-sig.Done():
	default:
		t.Error("Done() channel should be closed after Fire")
	}
}

func TestAbortSignalOnAbortRunsImmediatelyIfAlreadyFired(t *testing.T) {
	sig := NewAbortSignal()
	sig.Fire("cancel")

	var fired bool
	sig.OnAbort(func() { fired = true })
	require.True(t, fired)
}

func TestErrFromSignal(t *testing.T) {
	require.NoError(t, ErrFromSignal(nil))
	require.NoError(t, ErrFromSignal(NewAbortSignal()))

	timeout := NewAbortSignal()
	timeout.Fire("timeout")
	var timeoutErr *TimeoutError
	require.ErrorAs(t, ErrFromSignal(timeout), &timeoutErr)

	cancelled := NewAbortSignal()
	cancelled.Fire("caller")
	var abortErr *AbortError
	require.ErrorAs(t, ErrFromSignal(cancelled), &abortErr)
}

func TestParseErrorUnwrap(t *testing.T) {
	pe := &ParseError{Position: Position{Line: 2, Column: 3}, Source: "test", Err: ErrUnexpectedEOF}
	require.True(t, errors.Is(pe, ErrUnexpectedEOF))
	require.Contains(t, pe.Error(), "test")
}
