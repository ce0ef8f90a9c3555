package csvio

import (
	"bufio"
	"io"
	"sync"

	"github.com/tamsen/simdcsv/pkg/types"
)

const defaultWriterBufferSize = 64 << 10

// Writer encodes Records as delimited text, quoting a field iff it
// contains the delimiter, the quote character, or a line break, and
// doubling any embedded quote characters — the policy grounded on
// oleg578/swiftcsv's Writer.writeField, the pack's only CSV encoder.
type Writer struct {
	mu sync.Mutex

	dst     *bufio.Writer
	comma   byte
	quote   byte
	useCRLF bool

	wroteHeader bool
	err         error
}

// NewWriter returns a Writer over w configured by opts. opts.Delimiter and
// opts.Quotation are truncated to their low byte; callers writing non-ASCII
// delimiters should validate opts.ValidateASCII() first, as the Indexer
// does.
func NewWriter(w io.Writer, opts types.Options) *Writer {
	opts = opts.WithDefaults()
	return &Writer{
		dst:   bufio.NewWriterSize(w, defaultWriterBufferSize),
		comma: byte(opts.Delimiter),
		quote: byte(opts.Quotation),
	}
}

// UseCRLF configures the Writer to terminate records with "\r\n" instead
// of "\n".
func (w *Writer) UseCRLF(v bool) { w.useCRLF = v }

// Write encodes rec as one record. The first call additionally writes
// rec.Names as a header row, mirroring the Assembler's header-then-data
// shape on the way in.
func (w *Writer) Write(rec types.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}

	if !w.wroteHeader {
		w.wroteHeader = true
		if len(rec.Names) > 0 {
			if err := w.writeRow(rec.Names); err != nil {
				w.err = err
				return err
			}
		}
	}

	return w.writeRow(rec.Fields)
}

// Flush flushes any buffered output to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	if err := w.dst.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

func (w *Writer) writeRow(fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.dst.WriteByte(w.comma); err != nil {
				return err
			}
		}
		if err := w.writeField(field); err != nil {
			return err
		}
	}
	if w.useCRLF {
		_, err := w.dst.Write([]byte{'\r', '\n'})
		return err
	}
	return w.dst.WriteByte('\n')
}

func (w *Writer) writeField(field string) error {
	if !w.fieldNeedsQuote(field) {
		_, err := w.dst.WriteString(field)
		return err
	}

	if err := w.dst.WriteByte(w.quote); err != nil {
		return err
	}
	start := 0
	for i := 0; i < len(field); i++ {
		if field[i] == w.quote {
			if start < i {
				if _, err := w.dst.WriteString(field[start:i]); err != nil {
					return err
				}
			}
			if _, err := w.dst.Write([]byte{w.quote, w.quote}); err != nil {
				return err
			}
			start = i + 1
		}
	}
	if start < len(field) {
		if _, err := w.dst.WriteString(field[start:]); err != nil {
			return err
		}
	}
	return w.dst.WriteByte(w.quote)
}

func (w *Writer) fieldNeedsQuote(field string) bool {
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case w.comma, w.quote, '\n', '\r':
			return true
		}
	}
	return false
}
