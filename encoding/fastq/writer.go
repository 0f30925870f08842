package fastq

import (
	"bufio"
	"io"

	"github.com/nrminor/genotype/quality"
	"github.com/nrminor/genotype/record"
)

// WriterOptions configures quality-encoding conversion on write (spec
// §4.E: "the writer can re-encode quality scores to a target encoding").
type WriterOptions struct {
	// TargetEncoding, if non-nil, re-encodes each record's quality string
	// to this encoding on write. A nil value writes the record's quality
	// string unchanged in its existing encoding.
	TargetEncoding *record.QualityEncoding
}

// Writer is a FASTQ writer, structurally mirroring the teacher's
// encoding/fastq.Writer (a thin io.Writer wrapper that accumulates the
// first error and short-circuits subsequent writes), extended with
// optional quality re-encoding.
type Writer struct {
	w    *bufio.Writer
	opts WriterOptions
	err  error
}

// NewWriter constructs a Writer over w.
func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	return &Writer{w: bufio.NewWriter(w), opts: opts}
}

// Write serializes r as a four-line FASTQ record, optionally converting
// its quality string to opts.TargetEncoding first.
func (w *Writer) Write(r *record.Fastq) error {
	if w.err != nil {
		return w.err
	}
	qual := r.Quality
	if w.opts.TargetEncoding != nil && *w.opts.TargetEncoding != r.QualityEncoding {
		scores, err := quality.ToNumbers(r.Quality, r.QualityEncoding)
		if err != nil {
			w.err = err
			return w.err
		}
		qual, err = quality.ToString(scores, *w.opts.TargetEncoding)
		if err != nil {
			w.err = err
			return w.err
		}
	}

	header := "@" + r.ID
	if r.Description != "" {
		header += " " + r.Description
	}
	w.writeln(header)
	w.writeln(r.Sequence)
	w.writeln("+")
	w.writeln(qual)
	return w.err
}

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	if _, w.err = w.w.WriteString(line); w.err != nil {
		return
	}
	w.err = w.w.WriteByte('\n')
}

// Flush flushes buffered output to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}
