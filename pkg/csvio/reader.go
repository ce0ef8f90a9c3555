// Package csvio provides io.Reader/io.Writer convenience wrappers over the
// Lexer/Assembler core, the same role the teacher's Reader.Read/ReadAll
// pair fills over its own channel-based engine — reimplemented here as a
// thin synchronous adapter instead of a worker pool, since the new core is
// already resumable and doesn't need one.
package csvio

import (
	"bufio"
	"io"
	"sync"

	"github.com/tamsen/simdcsv/pkg/assembler"
	"github.com/tamsen/simdcsv/pkg/lexer"
	"github.com/tamsen/simdcsv/pkg/types"
)

const readChunkSize = 64 << 10

// Reader reads Records from an underlying io.Reader, chunk by chunk,
// through a Lexer and Assembler pair. Like the teacher's Reader, a Reader
// guards its mutable state with a mutex so Read/ReadAll may safely be
// called from one goroutine at a time without the caller coordinating.
type Reader struct {
	mu sync.Mutex

	src *bufio.Reader
	lex *lexer.Lexer
	asm *assembler.Assembler

	pending []types.Record
	err     error
	flushed bool
}

// NewReader returns a Reader over r configured by opts. Construction fails
// fast exactly as lexer.New/assembler.New do.
func NewReader(r io.Reader, opts types.Options) (*Reader, error) {
	lex, err := lexer.New(opts)
	if err != nil {
		return nil, err
	}
	asm, err := assembler.New(opts)
	if err != nil {
		return nil, err
	}
	return &Reader{src: bufio.NewReader(r), lex: lex, asm: asm}, nil
}

// Read returns the next Record, or io.EOF once the underlying reader and
// the Lexer/Assembler have both been fully drained — the same io.EOF
// convention the teacher's Reader.Read uses.
func (r *Reader) Read() (types.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if len(r.pending) > 0 {
			rec := r.pending[0]
			r.pending = r.pending[1:]
			return rec, nil
		}
		if r.err != nil {
			return types.Record{}, r.err
		}

		buf := make([]byte, readChunkSize)
		n, readErr := r.src.Read(buf)
		if n > 0 {
			if err := r.feed(string(buf[:n])); err != nil {
				r.err = err
				continue
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				r.err = readErr
				continue
			}
			if err := r.drain(); err != nil {
				r.err = err
				continue
			}
			if r.err == nil {
				r.err = io.EOF
			}
			continue
		}
	}
}

// ReadAll reads every remaining Record, mirroring the teacher's
// Reader.ReadAll.
func (r *Reader) ReadAll() ([]types.Record, error) {
	var all []types.Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return all, err
		}
		all = append(all, rec)
	}
}

func (r *Reader) feed(chunk string) error {
	var tokens []types.Token
	for tok, err := range r.lex.Lex(chunk, true) {
		if err != nil {
			return err
		}
		tokens = append(tokens, tok)
	}
	for rec, err := range r.asm.AssembleSlice(tokens) {
		if err != nil {
			return err
		}
		r.pending = append(r.pending, rec)
	}
	return nil
}

func (r *Reader) drain() error {
	if r.flushed {
		return nil
	}
	r.flushed = true

	var tokens []types.Token
	for tok, err := range r.lex.Flush() {
		if err != nil {
			return err
		}
		tokens = append(tokens, tok)
	}
	for rec, err := range r.asm.AssembleSlice(tokens) {
		if err != nil {
			return err
		}
		r.pending = append(r.pending, rec)
	}
	for rec, err := range r.asm.Flush() {
		if err != nil {
			return err
		}
		r.pending = append(r.pending, rec)
	}
	return nil
}
