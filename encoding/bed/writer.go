package bed

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/nrminor/genotype/record"
)

// Writer is a BED writer, emitting exactly the columns implied by each
// record's Has* presence flags.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter constructs a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write serializes r as a tab-separated BED line.
func (wr *Writer) Write(r *record.BedInterval) error {
	if wr.err != nil {
		return wr.err
	}
	cols := []string{r.Chromosome, strconv.FormatInt(r.Start, 10), strconv.FormatInt(r.End, 10)}
	if r.HasName {
		cols = append(cols, r.Name)
	}
	if r.HasScore {
		cols = append(cols, strconv.FormatInt(r.Score, 10))
	}
	if r.HasStrand {
		cols = append(cols, string(r.Strand))
	}
	if r.HasThick {
		cols = append(cols, strconv.FormatInt(r.ThickStart, 10), strconv.FormatInt(r.ThickEnd, 10))
	}
	if r.HasItemRGB {
		cols = append(cols, formatRGB(r.ItemRGB))
	}
	if r.HasBlocks {
		cols = append(cols, strconv.Itoa(r.BlockCount), formatIntList(r.BlockSizes), formatIntList(r.BlockStarts))
	}
	if _, wr.err = wr.w.WriteString(strings.Join(cols, "\t")); wr.err != nil {
		return wr.err
	}
	wr.err = wr.w.WriteByte('\n')
	return wr.err
}

func formatRGB(rgb [3]uint8) string {
	if rgb == [3]uint8{} {
		return "0"
	}
	return strconv.Itoa(int(rgb[0])) + "," + strconv.Itoa(int(rgb[1])) + "," + strconv.Itoa(int(rgb[2]))
}

func formatIntList(vals []int64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",") + ","
}

// Flush flushes buffered output to the underlying writer.
func (wr *Writer) Flush() error {
	if wr.err != nil {
		return wr.err
	}
	return wr.w.Flush()
}
