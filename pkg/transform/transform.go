// Package transform adapts the Lexer and Assembler to a push-based
// Consume/Flush shape, plus a channel-based convenience wrapper — the same
// two-stage pipeline shape the teacher's stage1Streaming/stage2Streaming
// goroutines implement, generalized here from a fixed two-stage worker
// pool into a pair of reusable, independently composable adapters.
package transform

import (
	"context"
	"time"

	"github.com/tamsen/simdcsv/pkg/assembler"
	"github.com/tamsen/simdcsv/pkg/lexer"
	"github.com/tamsen/simdcsv/pkg/types"
)

// backpressurePoll is how often Run re-checks a non-nil desired() while it
// reports no demand. Short enough to stay responsive, long enough that the
// wait doesn't spin a core.
const backpressurePoll = time.Millisecond

// waitForDemand blocks until desired() reports positive demand or ctx is
// cancelled; a nil desired returns true at once. Reports false if ctx was
// cancelled first.
func waitForDemand(ctx context.Context, desired func() int) bool {
	if desired == nil {
		return true
	}
	ticker := time.NewTicker(backpressurePoll)
	defer ticker.Stop()
	for desired() <= 0 {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
	return true
}

// LexerTransform adapts a *lexer.Lexer to Consume/Flush, checking for
// abort only every CheckInterval tokens rather than on every token (the
// Lexer itself checks once at the start of each Lex call).
type LexerTransform struct {
	lex           *lexer.Lexer
	checkInterval int
	signal        *types.AbortSignal
	seen          int
}

// NewLexerTransform builds a LexerTransform over a fresh Lexer configured
// by opts. checkInterval <= 0 disables the amortized abort check (every
// Consume call still observes a closed Lexer's error on its next call).
func NewLexerTransform(opts types.Options, checkInterval int) (*LexerTransform, error) {
	lex, err := lexer.New(opts)
	if err != nil {
		return nil, err
	}
	return &LexerTransform{lex: lex, checkInterval: checkInterval, signal: opts.Signal}, nil
}

// Consume lexes chunk and returns every token produced before an error (if
// any) stops the scan.
func (t *LexerTransform) Consume(chunk string) ([]types.Token, error) {
	var tokens []types.Token
	for tok, err := range t.lex.Lex(chunk, true) {
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if t.checkInterval > 0 {
			t.seen++
			if t.seen%t.checkInterval == 0 && t.signal != nil && t.signal.Aborted() {
				return tokens, types.ErrFromSignal(t.signal)
			}
		}
	}
	return tokens, nil
}

// Flush drains the Lexer's final tokens.
func (t *LexerTransform) Flush() ([]types.Token, error) {
	var tokens []types.Token
	for tok, err := range t.lex.Flush() {
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// Run drives a LexerTransform from a channel of chunks, pausing between
// chunks while desired() <= 0 — the same implicit backpressure the
// teacher's bounded bufchan/chunks channel capacities apply, made explicit
// here as a caller-supplied demand signal. The returned channels close
// once in is drained (or ctx is cancelled) and Flush has run.
func (t *LexerTransform) Run(ctx context.Context, in <-chan string, desired func() int) (<-chan []types.Token, <-chan error) {
	out := make(chan []types.Token)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		for {
			if !waitForDemand(ctx, desired) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-in:
				if !ok {
					tokens, err := t.Flush()
					if len(tokens) > 0 {
						select {
						case out <- tokens:
						case <-ctx.Done():
							return
						}
					}
					if err != nil {
						errc <- err
					}
					return
				}
				tokens, err := t.Consume(chunk)
				if len(tokens) > 0 {
					select {
					case out <- tokens:
					case <-ctx.Done():
						return
					}
				}
				if err != nil {
					errc <- err
					return
				}
			}
		}
	}()

	return out, errc
}

// AssemblerTransform adapts a *assembler.Assembler to Consume/Flush over
// token slices.
type AssemblerTransform struct {
	asm           *assembler.Assembler
	checkInterval int
	signal        *types.AbortSignal
	seen          int
}

// NewAssemblerTransform builds an AssemblerTransform over a fresh
// Assembler configured by opts.
func NewAssemblerTransform(opts types.Options, checkInterval int) (*AssemblerTransform, error) {
	asm, err := assembler.New(opts)
	if err != nil {
		return nil, err
	}
	return &AssemblerTransform{asm: asm, checkInterval: checkInterval, signal: opts.Signal}, nil
}

// Consume assembles tokens into zero or more completed records.
func (t *AssemblerTransform) Consume(tokens []types.Token) ([]types.Record, error) {
	var records []types.Record
	for rec, err := range t.asm.AssembleSlice(tokens) {
		if err != nil {
			return records, err
		}
		records = append(records, rec)
		if t.checkInterval > 0 {
			t.seen++
			if t.seen%t.checkInterval == 0 && t.signal != nil && t.signal.Aborted() {
				return records, types.ErrFromSignal(t.signal)
			}
		}
	}
	return records, nil
}

// Flush emits the Assembler's trailing partial record, if any.
func (t *AssemblerTransform) Flush() ([]types.Record, error) {
	var records []types.Record
	for rec, err := range t.asm.Flush() {
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Run drives an AssemblerTransform from a channel of token batches,
// pausing while desired() <= 0, mirroring LexerTransform.Run.
func (t *AssemblerTransform) Run(ctx context.Context, in <-chan []types.Token, desired func() int) (<-chan []types.Record, <-chan error) {
	out := make(chan []types.Record)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		for {
			if !waitForDemand(ctx, desired) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case tokens, ok := <-in:
				if !ok {
					records, err := t.Flush()
					if len(records) > 0 {
						select {
						case out <- records:
						case <-ctx.Done():
							return
						}
					}
					if err != nil {
						errc <- err
					}
					return
				}
				records, err := t.Consume(tokens)
				if len(records) > 0 {
					select {
					case out <- records:
					case <-ctx.Done():
						return
					}
				}
				if err != nil {
					errc <- err
					return
				}
			}
		}
	}()

	return out, errc
}
