package sam

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nrminor/genotype/internal/gterr"
	"github.com/nrminor/genotype/record"
)

// WriterOptions configures output behavior.
type WriterOptions struct {
	// Strict revalidates each record before serialization (spec §4.E).
	Strict bool
}

// Writer is a SAM writer: an optional header block followed by one
// alignment line per Write.
type Writer struct {
	w    *bufio.Writer
	opts WriterOptions
	err  error
}

// NewWriter constructs a Writer over w.
func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	return &Writer{w: bufio.NewWriter(w), opts: opts}
}

// WriteHeader serializes the header block.
func (wr *Writer) WriteHeader(header []record.SamHeader) error {
	if wr.err != nil {
		return wr.err
	}
	for _, h := range header {
		var line string
		if h.Kind == record.SamHeaderCO {
			line = "@CO\t" + h.Comment
		} else {
			parts := make([]string, 0, len(h.Fields)+1)
			parts = append(parts, "@"+string(h.Kind))
			for _, f := range h.Fields {
				parts = append(parts, f.Key+":"+f.Value)
			}
			line = strings.Join(parts, "\t")
		}
		if _, wr.err = wr.w.WriteString(line); wr.err != nil {
			return wr.err
		}
		if wr.err = wr.w.WriteByte('\n'); wr.err != nil {
			return wr.err
		}
	}
	return nil
}

// Write serializes a single alignment record, revalidating it first if
// WriterOptions.Strict is set.
func (wr *Writer) Write(a *record.SamAlignment) error {
	if wr.err != nil {
		return wr.err
	}
	if wr.opts.Strict {
		if a.Seq != "*" && a.Qual != "*" && len(a.Seq) != len(a.Qual) {
			wr.err = gterr.New(gterr.Sam, []gterr.Option{gterr.Field(a.QName)},
				"SEQ length %d does not match QUAL length %d", len(a.Seq), len(a.Qual))
			return wr.err
		}
	}

	cols := []string{
		a.QName,
		strconv.FormatUint(uint64(a.Flag), 10),
		a.RName,
		strconv.FormatInt(a.Pos, 10),
		strconv.FormatUint(uint64(a.MapQ), 10),
		a.Cigar.String(),
		a.RNext,
		strconv.FormatInt(a.PNext, 10),
		strconv.FormatInt(a.TLen, 10),
		a.Seq,
		a.Qual,
	}
	for _, tag := range a.Tags {
		cols = append(cols, formatTag(tag))
	}
	if _, wr.err = wr.w.WriteString(strings.Join(cols, "\t")); wr.err != nil {
		return wr.err
	}
	wr.err = wr.w.WriteByte('\n')
	return wr.err
}

func formatTag(tag record.SamTag) string {
	var val string
	switch v := tag.Value.(type) {
	case byte:
		val = string(v)
	case int64:
		val = strconv.FormatInt(v, 10)
	case float64:
		val = strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		val = v
	default:
		val = fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("%s:%c:%s", tag.Name(), tag.Type, val)
}

// Flush flushes buffered output to the underlying writer.
func (wr *Writer) Flush() error {
	if wr.err != nil {
		return wr.err
	}
	return wr.w.Flush()
}
