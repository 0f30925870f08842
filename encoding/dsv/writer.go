package dsv

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/nrminor/genotype/record"
)

// WriterOptions configures a Writer (spec §4.E).
type WriterOptions struct {
	Delimiter      byte
	QuoteAll       bool
	LineEnding     string // defaults to "\n"
	ExcelProtect   bool
}

func (o *WriterOptions) fill() {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.LineEnding == "" {
		o.LineEnding = "\n"
	}
}

// Writer serializes Dsv rows, honoring quote_all, custom line endings,
// and Excel-formula protection (spec §4.E).
type Writer struct {
	w    *bufio.Writer
	opts WriterOptions
	err  error
}

// NewWriter constructs a Writer over w.
func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	opts.fill()
	return &Writer{w: bufio.NewWriter(w), opts: opts}
}

// WriteHeader serializes a header row.
func (wr *Writer) WriteHeader(header []string) error {
	return wr.writeRow(header)
}

// Write serializes a single row's values.
func (wr *Writer) Write(r *record.Dsv) error {
	return wr.writeRow(r.Values)
}

func (wr *Writer) writeRow(fields []string) error {
	if wr.err != nil {
		return wr.err
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = wr.encodeField(f)
	}
	if _, wr.err = wr.w.WriteString(strings.Join(parts, string(wr.opts.Delimiter))); wr.err != nil {
		return wr.err
	}
	_, wr.err = wr.w.WriteString(wr.opts.LineEnding)
	return wr.err
}

var (
	leadingZeroRe    = regexp.MustCompile(`^0\d+$`)
	geneDateRe       = regexp.MustCompile(`^(?i)(mar|sep|dec|feb|oct)\d{1,2}$`)
	formulaPrefixSet = "=+-@"
)

func (wr *Writer) encodeField(f string) string {
	needsQuote := wr.opts.QuoteAll ||
		strings.ContainsRune(f, rune(wr.opts.Delimiter)) ||
		strings.ContainsAny(f, "\"\n\r")

	if wr.opts.ExcelProtect && needsExcelProtection(f) {
		needsQuote = true
	}

	if !needsQuote {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}

// needsExcelProtection reports whether f matches one of the patterns
// Excel would otherwise misinterpret on open: gene-to-date autoconversion
// (e.g. "MAR1" -> a date), a leading-zero numeric string (e.g. "007"),
// an integer of 16 or more digits (precision loss), or a leading formula
// character (spec §4.D).
func needsExcelProtection(f string) bool {
	if f == "" {
		return false
	}
	if geneDateRe.MatchString(f) {
		return true
	}
	if leadingZeroRe.MatchString(f) {
		return true
	}
	if _, err := strconv.ParseInt(f, 10, 64); err == nil && len(strings.TrimPrefix(f, "-")) >= 16 {
		return true
	}
	if strings.ContainsRune(formulaPrefixSet, rune(f[0])) {
		return true
	}
	return false
}

// Flush flushes buffered output to the underlying writer.
func (wr *Writer) Flush() error {
	if wr.err != nil {
		return wr.err
	}
	return wr.w.Flush()
}
