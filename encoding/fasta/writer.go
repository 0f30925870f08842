package fasta

import (
	"bufio"
	"io"

	"github.com/nrminor/genotype/record"
)

// WriterOptions configures line-wrap width on write (spec §4.E: "FASTA
// writer line-wraps sequences at configured width"); spec §4.D notes FASTA
// read has unlimited wrap width, so only the writer needs this knob.
type WriterOptions struct {
	Width int // 0 disables wrapping (single line per sequence)
}

// Writer is a FASTA writer, structurally mirroring the teacher's
// encoding/fastq.Writer (a thin io.Writer wrapper that accumulates the
// first error and short-circuits subsequent writes).
type Writer struct {
	w     *bufio.Writer
	opts  WriterOptions
	err   error
}

// NewWriter constructs a Writer over w.
func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	return &Writer{w: bufio.NewWriter(w), opts: opts}
}

// Write serializes r in FASTA format: ">" id [" " description] LF,
// followed by sequence lines wrapped at opts.Width (or unwrapped if
// Width<=0), matching spec §6.
func (wr *Writer) Write(r *record.Fasta) error {
	if wr.err != nil {
		return wr.err
	}
	if _, wr.err = wr.w.WriteString(">" + r.ID); wr.err != nil {
		return wr.err
	}
	if r.Description != "" {
		if _, wr.err = wr.w.WriteString(" " + r.Description); wr.err != nil {
			return wr.err
		}
	}
	if wr.err = wr.w.WriteByte('\n'); wr.err != nil {
		return wr.err
	}
	seq := r.Sequence
	width := wr.opts.Width
	if width <= 0 {
		if _, wr.err = wr.w.WriteString(seq); wr.err != nil {
			return wr.err
		}
		wr.err = wr.w.WriteByte('\n')
		return wr.err
	}
	for i := 0; i < len(seq); i += width {
		end := i + width
		if end > len(seq) {
			end = len(seq)
		}
		if _, wr.err = wr.w.WriteString(seq[i:end]); wr.err != nil {
			return wr.err
		}
		if wr.err = wr.w.WriteByte('\n'); wr.err != nil {
			return wr.err
		}
	}
	return nil
}

// Flush flushes buffered output to the underlying writer.
func (wr *Writer) Flush() error {
	if wr.err != nil {
		return wr.err
	}
	return wr.w.Flush()
}
